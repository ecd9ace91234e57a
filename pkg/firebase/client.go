package firebase

import (
	"context"
	"errors"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

// NewAuthClient initializes the Firebase app for the project and returns its Auth client.
func NewAuthClient(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*auth.Client, error) {
	if gcp.ProjectID == "" {
		return nil, errors.New("gcp project id is required")
	}

	var opts []option.ClientOption
	if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: gcp.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "firebase auth initialized")
	}
	return client, nil
}
