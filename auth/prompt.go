package auth

import (
	"context"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
)

// ConsentEnv short-circuits the prompt for scripted runs.
// "granted" resolves to Authorized, "denied" to Denied.
const ConsentEnv = "HARK_CONSENT"

// PromptGate asks the user on the terminal, once, whether audio capture
// is allowed. A prompt that cannot be shown (no usable terminal) resolves
// to Restricted rather than an error: the answer is "you may not", not
// "something broke".
type PromptGate struct {
	once   sync.Once
	state  State
	logger *log.Logger
}

func NewPromptGate(logger *log.Logger) *PromptGate {
	return &PromptGate{state: NotDetermined, logger: logger}
}

func (g *PromptGate) Request(ctx context.Context) (State, error) {
	g.once.Do(func() {
		switch os.Getenv(ConsentEnv) {
		case "granted":
			g.state = Authorized
			return
		case "denied":
			g.state = Denied
			return
		}

		var allowed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Allow hark to capture audio and send it for recognition?").
					Value(&allowed),
			),
		)

		if err := form.RunWithContext(ctx); err != nil {
			g.logger.Debug("consent prompt unavailable", "error", err.Error())
			g.state = Restricted
			return
		}

		if allowed {
			g.state = Authorized
		} else {
			g.state = Denied
		}
	})

	return g.state, nil
}
