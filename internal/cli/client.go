package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiError is a non-2xx response from the registry API
type apiError struct {
	Status  int
	Message string
	Kind    string
}

func (e *apiError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Kind)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// client talks to the registry HTTP API with the saved session token
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *client {
	return &client{
		baseURL: strings.TrimRight(getAPIURL(), "/"),
		token:   loadToken(),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error, Kind: e.Kind}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("BLUECARBON_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bluecarbon", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile()), 0700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}
