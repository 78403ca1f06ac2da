package gcal_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/oauth2"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/gcal"
)

type mockObjectGetter struct {
	GetObjectFunc func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

func (m *mockObjectGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(params)
}

func TestTokenLoader_TokenSource(t *testing.T) {
	tests := []struct {
		name      string
		getObject func(t *testing.T) func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error)
		wantToken string
		wantErr   bool
	}{
		{
			name: "success cached token",
			getObject: func(t *testing.T) func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
				return func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
					if *params.Bucket != "bucket" || *params.Key != "token/token_lambda.json" {
						t.Errorf("unexpected object s3://%s/%s", *params.Bucket, *params.Key)
					}
					return &s3.GetObjectOutput{Body: mustLoadJsonFile(t, "testdata/token.json")}, nil
				}
			},
			wantToken: "ya29.cached-access-token",
		},
		{
			name: "error getting object",
			getObject: func(t *testing.T) func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
				return func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
					return nil, errors.New("access denied")
				}
			},
			wantErr: true,
		},
		{
			name: "malformed object",
			getObject: func(t *testing.T) func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
				return func(params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
					return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("not json"))}, nil
				}
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			loader := &gcal.TokenLoader{
				S3:     &mockObjectGetter{GetObjectFunc: tt.getObject(t)},
				Bucket: "bucket",
				Key:    "token/token_lambda.json",
			}

			ts, err := loader.TokenSource(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("TokenLoader.TokenSource() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			token, err := ts.Token()
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if token.AccessToken != tt.wantToken {
				t.Errorf("Token() = %q, want %q", token.AccessToken, tt.wantToken)
			}
		})
	}
}

func TestAuthorizedUser_TokenSource_RefreshesUnreadableExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if got := r.PostForm.Get("refresh_token"); got != "refresh" {
			t.Errorf("refresh_token = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	user := gcal.AuthorizedUser{
		Token:        "stale",
		RefreshToken: "refresh",
		TokenURI:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		Expiry:       "",
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())

	token, err := user.TokenSource(ctx).Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("Token() = %q, want fresh", token.AccessToken)
	}
}
