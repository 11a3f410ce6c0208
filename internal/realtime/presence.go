package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Presence answers whether a user has at least one live connection
type Presence interface {
	Connected(ctx context.Context, userID uint) error
	Disconnected(ctx context.Context, userID uint) error
	// Refresh is called periodically while userID stays connected
	Refresh(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
}

// localPresence reads the hub's own connection table
type localPresence struct {
	hub *Hub
}

func (localPresence) Connected(context.Context, uint) error    { return nil }
func (localPresence) Disconnected(context.Context, uint) error { return nil }
func (localPresence) Refresh(context.Context, uint) error      { return nil }

func (p localPresence) IsOnline(_ context.Context, userID uint) (bool, error) {
	return p.hub.connectedLocally(userID), nil
}

// presenceTTL bounds how long a crashed instance can keep a user online.
// Live connections refresh it on every ping, well inside the window.
const presenceTTL = 2 * time.Minute

// ValkeyPresence shares online state across server instances. Each instance
// holds one count per user it has connections for.
type ValkeyPresence struct {
	client valkey.Client
}

func NewValkeyPresence(client valkey.Client) *ValkeyPresence {
	return &ValkeyPresence{client: client}
}

// DialValkey connects to a single valkey node
func DialValkey(addr string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey at %s: %w", addr, err)
	}
	return client, nil
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (p *ValkeyPresence) Connected(ctx context.Context, userID uint) error {
	key := presenceKey(userID)
	cmds := valkey.Commands{
		p.client.B().Incr().Key(key).Build(),
		p.client.B().Expire().Key(key).Seconds(int64(presenceTTL.Seconds())).Build(),
	}
	for _, resp := range p.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Refresh pushes the expiry out again. A key that already lapsed is
// recreated with this instance's count.
func (p *ValkeyPresence) Refresh(ctx context.Context, userID uint) error {
	key := presenceKey(userID)
	ok, err := p.client.Do(ctx, p.client.B().Expire().Key(key).Seconds(int64(presenceTTL.Seconds())).Build()).AsBool()
	if err != nil {
		return err
	}
	if !ok {
		return p.Connected(ctx, userID)
	}
	return nil
}

func (p *ValkeyPresence) Disconnected(ctx context.Context, userID uint) error {
	key := presenceKey(userID)
	n, err := p.client.Do(ctx, p.client.B().Decr().Key(key).Build()).AsInt64()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.client.Do(ctx, p.client.B().Del().Key(key).Build()).Error()
	}
	return nil
}

func (p *ValkeyPresence) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := p.client.Do(ctx, p.client.B().Get().Key(presenceKey(userID)).Build()).AsInt64()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
