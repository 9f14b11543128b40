// Package notify delivers push notifications to users over PubNub, either inline or via
// asynq tasks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"queueaway/internal/config"
	"queueaway/internal/domain"

	pubnubgo "github.com/pubnub/go/v7"
)

// ChannelFor returns the push channel of a user.
func ChannelFor(userID string) string {
	return fmt.Sprintf("channel-%s", userID)
}

// PubNubPublisher publishes to per-user channels and issues read tokens for them.
type PubNubPublisher struct {
	pn       *pubnubgo.PubNub
	tokenTTL int
}

var _ domain.PushPublisher = (*PubNubPublisher)(nil)

func NewPubNubPublisher(cfg config.PubNubConfig) (*PubNubPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("pubnub publish and subscribe keys are required")
	}

	pnCfg := pubnubgo.NewConfigWithUserId(pubnubgo.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	return newPubNubPublisher(pnCfg, cfg.TokenTTL), nil
}

func newPubNubPublisher(pnCfg *pubnubgo.Config, tokenTTL int) *PubNubPublisher {
	if tokenTTL <= 0 {
		tokenTTL = 60
	}
	return &PubNubPublisher{pn: pubnubgo.NewPubNub(pnCfg), tokenTTL: tokenTTL}
}

// Publish sends payload as JSON to the user's channel and returns the publish timetoken.
func (p *PubNubPublisher) Publish(ctx context.Context, userID string, payload any) (string, error) {
	message, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal push payload: %w", err)
	}

	resp, _, err := p.pn.PublishWithContext(ctx).
		Channel(ChannelFor(userID)).
		Message(string(message)).
		Execute()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", ChannelFor(userID), err)
	}
	return strconv.FormatInt(resp.Timestamp, 10), nil
}

// GrantToken issues a token that lets userID read its own channel only.
func (p *PubNubPublisher) GrantToken(ctx context.Context, userID string) (string, error) {
	permissions := map[string]pubnubgo.ChannelPermissions{
		"^" + regexp.QuoteMeta(ChannelFor(userID)) + "$": {
			Read: true,
		},
	}

	token, _, err := p.pn.GrantTokenWithContext(ctx).
		TTL(p.tokenTTL).
		AuthorizedUUID(userID).
		ChannelsPattern(permissions).
		Execute()
	if err != nil {
		return "", fmt.Errorf("grant token: %w", err)
	}
	return token.Data.Token, nil
}
