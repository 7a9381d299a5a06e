// Package processor turns batches of chat messages into response records for a
// bot. Each message is tokenized on a bounded worker pool and the per-message
// records are joined once every worker has finished.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/logger"
	"github.com/edgard/chatbots/internal/tokenizer"
)

var (
	// ErrCanceled is returned when the caller's context is canceled before all
	// messages were processed.
	ErrCanceled = errors.New("processing canceled")
	// ErrTimeout is returned when the batch deadline expires before all messages
	// were processed.
	ErrTimeout = errors.New("processing timed out")
)

// Tokenizer splits a message into word tokens.
type Tokenizer interface {
	Tokenize(message string) []string
}

// Processor produces response records from message batches. A Processor holds no
// per-batch state and is safe for concurrent use.
type Processor struct {
	workers   int
	timeout   time.Duration
	tokenizer Tokenizer
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers sets the maximum number of messages processed in parallel.
// Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTimeout bounds every Process call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTokenizer replaces the default root-locale tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tokenizer = t
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Processor. Without options it uses GOMAXPROCS workers, no
// timeout and a root-locale tokenizer.
func New(opts ...Option) *Processor {
	p := &Processor{
		workers:   runtime.GOMAXPROCS(0),
		tokenizer: tokenizer.New(language.Und),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "processor")
	return p
}

// Workers returns the pool size.
func (p *Processor) Workers() int {
	return p.workers
}

// Process tokenizes every message and returns one {"response": token} record per
// token. The call blocks until all messages are done; the order of the returned
// responses is unspecified. Neither bot nor messages is modified.
//
// ctx is checked between messages. If it ends first, no result is returned and the
// error wraps ErrTimeout or ErrCanceled.
func (p *Processor) Process(ctx context.Context, bot *chatbot.Bot, messages []string) (*chatbot.Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log := p.logger.With("batch_id", uuid.NewString(), "message_count", len(messages))
	if bot != nil {
		log = log.With("bot", bot.Title)
	}
	startTime := time.Now()

	perMessage := make([][]chatbot.Response, len(messages))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var stopErr error
	for i, message := range messages {
		if err := gCtx.Err(); err != nil {
			stopErr = err
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			words := p.words(gCtx, log, message)
			records := make([]chatbot.Response, 0, len(words))
			for _, word := range words {
				records = append(records, chatbot.NewResponse(word))
			}
			perMessage[i] = records
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = stopErr
	}
	if waitErr != nil {
		err := classify(waitErr)
		log.WarnContext(ctx, "Processing stopped before completion", "error", err, "duration", time.Since(startTime))
		return nil, err
	}

	total := 0
	for _, records := range perMessage {
		total += len(records)
	}
	responses := make([]chatbot.Response, 0, total)
	for _, records := range perMessage {
		responses = append(responses, records...)
	}

	log.DebugContext(ctx, "Processed message batch", "response_count", total, "duration", time.Since(startTime))
	return &chatbot.Result{Bot: bot, Responses: responses}, nil
}

// words runs the tokenizer and treats a tokenizer panic as a message with no words.
func (p *Processor) words(ctx context.Context, log *slog.Logger, message string) (words []string) {
	defer func() {
		if r := recover(); r != nil {
			log.WarnContext(ctx, "Tokenizer failed, skipping message", "panic", r, "message_len", len(message))
			words = nil
		}
	}()
	return p.tokenizer.Tokenize(message)
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	default:
		return err
	}
}
