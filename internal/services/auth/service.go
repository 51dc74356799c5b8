// Package auth drives the interactive login handshake against a connected
// client: credential prompt, code challenge, optional two-factor password.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/telegram"
)

// ErrCancelled reports a user-requested cancellation at a blocking point.
// It is not treated as a failure by the job boundary.
var ErrCancelled = errors.New("cancelled")

// Service runs the authentication state machine for one job. Prompt
// answers arrive through a single-slot channel: the control thread writes,
// the job worker reads, and at most one prompt is ever pending.
type Service struct {
	sink           interfaces.EventSink
	logger         arbor.ILogger
	maxCodeRetries int

	answers chan string
}

// NewService creates an authenticator emitting prompts to sink.
// maxCodeRetries caps rate-limited code-request retries; 0 retries forever.
func NewService(sink interfaces.EventSink, logger arbor.ILogger, maxCodeRetries int) *Service {
	return &Service{
		sink:           sink,
		logger:         logger,
		maxCodeRetries: maxCodeRetries,
		answers:        make(chan string, 1),
	}
}

// Supply hands one prompt answer to the waiting job worker. An empty
// string signals cancel/skip. Supplying with no prompt pending drops the
// input rather than blocking the control thread.
func (s *Service) Supply(input string) {
	select {
	case s.answers <- input:
	default:
		s.logger.Warn().Msg("Prompt answer dropped: no prompt pending")
	}
}

// EnsureClient connects the client if it is not already connected
func (s *Service) EnsureClient(ctx context.Context, client telegram.Client) error {
	if client.IsConnected() {
		return nil
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// EnsureAuthorized runs the interactive authorization flow. When the
// stored session already authorizes a user it short-circuits without
// prompting. Cancellation at any blocking point returns ErrCancelled.
func (s *Service) EnsureAuthorized(ctx context.Context, client telegram.Client) error {
	if err := s.EnsureClient(ctx, client); err != nil {
		return err
	}

	authorized, err := client.IsAuthorized(ctx)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if authorized {
		me, err := client.Me(ctx)
		if err != nil {
			return fmt.Errorf("failed to load current user: %w", err)
		}
		s.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Authorized as %s", me.FirstName)))
		return nil
	}

	phone, err := s.requestCode(ctx, client)
	if err != nil {
		return err
	}

	s.sink.Emit(interfaces.AuthCodePrompt(fmt.Sprintf("Enter the code sent to %s", phone)))
	code, err := s.await(ctx)
	if err != nil {
		return err
	}

	err = client.SignIn(ctx, phone, code)
	if err == nil {
		s.sink.Emit(interfaces.StatusMessage("Authorization successful"))
		return nil
	}
	if !errors.Is(err, telegram.ErrTwoFactorRequired) {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	s.sink.Emit(interfaces.StatusMessage("Two-factor password required"))
	s.sink.Emit(interfaces.AuthPasswordPrompt())
	password, err := s.await(ctx)
	if err != nil {
		return err
	}
	if err := client.SignInWithPassword(ctx, password); err != nil {
		return fmt.Errorf("two-factor sign-in failed: %w", err)
	}
	s.sink.Emit(interfaces.StatusMessage("Authorization with two-factor password successful"))
	return nil
}

// requestCode prompts for the phone number and asks the server to send a
// login code. A flood-wait response sleeps for the server-specified
// duration and retries the whole phone-submission step; with
// maxCodeRetries of 0 the retry loop is bounded only by cancellation.
func (s *Service) requestCode(ctx context.Context, client telegram.Client) (string, error) {
	attempts := 0
	for {
		s.sink.Emit(interfaces.AuthCodePrompt("Enter phone number (e.g. +1234567890)"))
		phone, err := s.await(ctx)
		if err != nil {
			return "", err
		}

		s.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Sending login code to %s", phone)))
		err = client.SendCodeRequest(ctx, phone)
		if err == nil {
			return phone, nil
		}

		var floodWait *telegram.FloodWaitError
		if !errors.As(err, &floodWait) {
			return "", fmt.Errorf("failed to send login code: %w", err)
		}

		attempts++
		if s.maxCodeRetries > 0 && attempts >= s.maxCodeRetries {
			return "", fmt.Errorf("rate limited after %d code request attempts: %w", attempts, err)
		}

		s.sink.Emit(interfaces.StatusMessage(fmt.Sprintf("Rate limited, retrying in %s", floodWait.Duration())))
		s.logger.Warn().
			Int("seconds", floodWait.Seconds).
			Int("attempt", attempts).
			Msg("Flood wait on code request")

		select {
		case <-time.After(floodWait.Duration()):
		case <-ctx.Done():
			return "", ErrCancelled
		}
	}
}

// await blocks until the presentation collaborator supplies an answer or
// the job is cancelled. An empty answer is a cancel/skip signal.
func (s *Service) await(ctx context.Context) (string, error) {
	select {
	case input := <-s.answers:
		input = strings.TrimSpace(input)
		if input == "" {
			return "", ErrCancelled
		}
		return input, nil
	case <-ctx.Done():
		return "", ErrCancelled
	}
}
