// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2/jwt"
)

const (
	scopeAnalyticsReadonly = "https://www.googleapis.com/auth/analytics.readonly"
	defaultTokenURL        = "https://oauth2.googleapis.com/token"
)

// serviceAccountKey is the subset of a service account key file the JWT
// flow needs.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewHTTPClient builds an authenticated HTTP client from service account
// key JSON. The returned client refreshes tokens transparently.
func NewHTTPClient(ctx context.Context, keyJSON []byte) (*http.Client, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(keyJSON, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing client_email or private_key")
	}

	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	conf := &jwt.Config{
		Email:      key.ClientEmail,
		PrivateKey: []byte(key.PrivateKey),
		Scopes:     []string{scopeAnalyticsReadonly},
		TokenURL:   tokenURL,
	}

	return conf.Client(ctx), nil
}
