package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// Auto answers every request with the same decision.
type Auto struct {
	Decision domain.ApprovalDecision
}

// AutoApprove returns a gate approving every session.
func AutoApprove() Auto {
	return Auto{Decision: domain.Approve()}
}

// AwaitApproval implements ports.ApprovalGate.
func (a Auto) AwaitApproval(ctx context.Context, _ string) (domain.ApprovalDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.ApprovalDecision{}, err
	}
	return a.Decision, nil
}

// LineReader reads one line of user input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

type scannerReader struct {
	s *bufio.Scanner
}

// NewScannerReader adapts a plain io.Reader to a LineReader.
func NewScannerReader(r io.Reader) LineReader {
	return &scannerReader{s: bufio.NewScanner(r)}
}

func (r *scannerReader) Readline() (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Prompt asks a human on a terminal. Answers starting with "y" approve,
// anything else rejects with the answer as the reason.
//
// A blocked read cannot be interrupted. When the context ends first the read
// stays in flight and its line answers the next AwaitApproval, so at most one
// read is outstanding on the reader.
type Prompt struct {
	in       LineReader
	out      io.Writer
	question string

	mu       sync.Mutex
	inflight chan answer
}

type answer struct {
	line string
	err  error
}

// NewPrompt creates a terminal gate. The question is written to out before
// reading; readers that print their own prompt can pass io.Discard.
func NewPrompt(in LineReader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out, question: "send the email? [y/N]: "}
}

// AwaitApproval implements ports.ApprovalGate.
func (p *Prompt) AwaitApproval(ctx context.Context, sessionID string) (domain.ApprovalDecision, error) {
	fmt.Fprint(p.out, p.question)

	done := p.read()
	select {
	case <-ctx.Done():
		return domain.ApprovalDecision{}, ctx.Err()
	case a := <-done:
		p.mu.Lock()
		p.inflight = nil
		p.mu.Unlock()

		if a.err != nil {
			if errors.Is(a.err, io.EOF) {
				return domain.Reject("no answer"), nil
			}
			return domain.ApprovalDecision{}, a.err
		}
		line := strings.ToLower(strings.TrimSpace(a.line))
		if strings.HasPrefix(line, "y") {
			return domain.Approve(), nil
		}
		if line == "" {
			line = "declined"
		}
		return domain.Reject(line), nil
	}
}

// read returns the pending read, starting one if none is in flight.
func (p *Prompt) read() chan answer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := p.in.Readline()
			ch <- answer{line, err}
		}()
		p.inflight = ch
	}
	return p.inflight
}

type timeoutGate struct {
	gate    ports.ApprovalGate
	timeout time.Duration
}

// WithTimeout bounds every wait of gate. An expired wait returns
// domain.ErrApprovalTimeout; cancellation of the parent context is returned
// unchanged. A non-positive timeout returns gate as is.
func WithTimeout(gate ports.ApprovalGate, timeout time.Duration) ports.ApprovalGate {
	if timeout <= 0 {
		return gate
	}
	return &timeoutGate{gate: gate, timeout: timeout}
}

func (g *timeoutGate) AwaitApproval(ctx context.Context, sessionID string) (domain.ApprovalDecision, error) {
	tctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	d, err := g.gate.AwaitApproval(tctx, sessionID)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return d, fmt.Errorf("%w after %s", domain.ErrApprovalTimeout, g.timeout)
	}
	return d, err
}
