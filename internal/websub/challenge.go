package websub

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mattjoyce/livegate/internal/secrets"
)

// ChallengeError is a validation failure during the subscription
// verification handshake. The reason is safe to return to the hub.
type ChallengeError struct {
	Reason string
}

func (e *ChallengeError) Error() string {
	return e.Reason
}

// ChallengeValidator validates the hub's GET verification handshake against
// the current secret and monitored channel.
type ChallengeValidator struct {
	params secrets.Store
}

func NewChallengeValidator(params secrets.Store) *ChallengeValidator {
	return &ChallengeValidator{params: params}
}

// Validate checks the handshake query parameters and returns the
// hub.challenge value to echo back. Optional parameters are validated only
// when present; the hub does not send all of them on every handshake.
func (v *ChallengeValidator) Validate(ctx context.Context, query url.Values) (string, error) {
	challenge := query.Get("hub.challenge")
	if challenge == "" {
		return "", &ChallengeError{Reason: "Bad Request: Missing hub.challenge parameter"}
	}

	if mode := query.Get("hub.mode"); mode != "" && mode != "subscribe" {
		return "", &ChallengeError{Reason: fmt.Sprintf("Bad Request: Invalid hub.mode: %s", mode)}
	}

	if secret := query.Get("hub.secret"); secret != "" {
		current, err := v.params.Get(ctx, secrets.ParamHMACSecret)
		if err != nil {
			return "", fmt.Errorf("read current secret: %w", err)
		}
		if secret != current {
			return "", &ChallengeError{Reason: fmt.Sprintf("Bad Request: Invalid hub.secret: %s", secret)}
		}
	}

	if topic := query.Get("hub.topic"); topic != "" {
		channelID, err := v.params.Get(ctx, secrets.ParamChannelID)
		if err != nil {
			return "", fmt.Errorf("read channel id: %w", err)
		}
		if topic != TopicURL(channelID) {
			return "", &ChallengeError{Reason: fmt.Sprintf("Bad Request: Unexpected topic URL: %s", topic)}
		}
	}

	if lease := query.Get("hub.lease_seconds"); lease != "" {
		n, err := strconv.Atoi(lease)
		if err != nil || n != LeaseSeconds {
			return "", &ChallengeError{Reason: fmt.Sprintf("Bad Request: Invalid hub.lease_seconds: %s", lease)}
		}
	}

	return challenge, nil
}
