package services

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"feedbackapp/internal/config"
	"feedbackapp/internal/observability"
	contextutils "feedbackapp/internal/utils"
)

// TokenVerifier checks provider ID tokens presented as bearer credentials.
// It backs the API-token path of the auth middleware; browser sessions use
// the cookie session instead.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (uid string, err error)
}

// firebaseVerifier verifies tokens against the identity provider's admin API.
type firebaseVerifier struct {
	auth   *auth.Client
	logger *observability.Logger
}

// NewTokenVerifier creates a verifier bound to the configured project.
func NewTokenVerifier(ctx context.Context, cfg *config.StoreConfig, logger *observability.Logger) (TokenVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize identity admin app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize identity admin client")
	}

	return &firebaseVerifier{auth: client, logger: logger}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (uid string, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "verify_id_token")
	defer observability.FinishSpan(span, &err)

	token, err := v.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		v.logger.Debug(ctx, "ID token verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", contextutils.WrapError(contextutils.ErrUnauthorized, "invalid or expired token")
	}
	return token.UID, nil
}
