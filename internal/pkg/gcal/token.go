package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
)

// ObjectGetter is the S3 call used to fetch the stored token.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AuthorizedUser is the stored OAuth user token: access token, refresh token
// and the client that issued them.
type AuthorizedUser struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

type TokenLoader struct {
	S3     ObjectGetter
	Bucket string
	Key    string
}

// TokenSource reads the token object and returns a source that refreshes it as needed.
func (loader *TokenLoader) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	out, err := loader.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loader.Bucket),
		Key:    aws.String(loader.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting token object s3://%s/%s: %w", loader.Bucket, loader.Key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading token object %w", err)
	}

	user := AuthorizedUser{}

	err = json.Unmarshal(body, &user)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling token object %w", err)
	}

	return user.TokenSource(ctx), nil
}

func (user AuthorizedUser) TokenSource(ctx context.Context) oauth2.TokenSource {
	endpoint := google.Endpoint
	if user.TokenURI != "" {
		endpoint.TokenURL = user.TokenURI
	}

	scopes := user.Scopes
	if len(scopes) == 0 {
		scopes = []string{gcalendar.CalendarScope}
	}

	conf := &oauth2.Config{
		ClientID:     user.ClientID,
		ClientSecret: user.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	token := &oauth2.Token{
		AccessToken:  user.Token,
		RefreshToken: user.RefreshToken,
		TokenType:    "Bearer",
	}

	// An unreadable expiry forces a refresh on first use.
	expiry, err := time.Parse(time.RFC3339Nano, user.Expiry)
	if err != nil {
		token.AccessToken = ""
	} else {
		token.Expiry = expiry
	}

	return conf.TokenSource(ctx, token)
}
