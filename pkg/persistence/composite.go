package persistence

import "context"

// Composite overlays a dedicated session repository on another persistence
// implementation. Deployments use it to keep flows and bots on durable
// storage while sessions live in a faster store.
type Composite struct {
	base     Persistence
	sessions SessionRepository
}

// NewComposite returns a Persistence that delegates everything to base
// except session storage.
func NewComposite(base Persistence, sessions SessionRepository) *Composite {
	return &Composite{base: base, sessions: sessions}
}

func (c *Composite) Flows() FlowRepository { return c.base.Flows() }

func (c *Composite) Bots() BotRepository { return c.base.Bots() }

func (c *Composite) Sessions() SessionRepository { return c.sessions }

func (c *Composite) HealthCheck(ctx context.Context) error {
	return c.base.HealthCheck(ctx)
}

func (c *Composite) Close(ctx context.Context) error {
	return c.base.Close(ctx)
}
