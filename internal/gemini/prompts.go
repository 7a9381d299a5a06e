package gemini

// DescribeBotInstruction asks for a store listing blurb. The format string expects
// the bot title, a sample of its lexicon and a sample of its canned responses.
const DescribeBotInstruction = `You write short store listings for chat bots that suggest replies in a messenger.

Bot name: %s
Words the bot knows: %s
Example replies: %s

Write one or two plain sentences (at most 240 characters) telling a user what this bot helps with. No markdown, no quotes, no emoji, do not repeat the bot name at the start.`
