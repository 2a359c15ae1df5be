package medium

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the root of the public REST API
const DefaultBaseURL = "https://api.medium.com/v1"

// MaxTags is the number of tags the platform keeps on a post. Extra tags are
// dropped before submission rather than rejected.
const MaxTags = 5

// Config holds everything needed to talk to the API. It is built once by the
// caller and never modified by the client.
type Config struct {
	BaseURL    string       // defaults to DefaultBaseURL
	Token      string       // integration token, sent as a bearer token
	HTTPClient *http.Client // optional base client, defaults to http.DefaultClient
}

// User is the identity returned by the "who am I" call
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl"`
}

// PostRequest describes a post to be created
type PostRequest struct {
	Title      string
	Content    string
	Tags       []string
	Visibility string // "public", "draft", or "unlisted"
	Format     string // "markdown" or "html"
}

// Post is a post that was created on the platform
type Post struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	AuthorID      string   `json:"authorId"`
	Tags          []string `json:"tags"`
	URL           string   `json:"url"`
	CanonicalURL  string   `json:"canonicalUrl"`
	PublishStatus string   `json:"publishStatus"`
	PublishedAt   int64    `json:"publishedAt"`
}

// createPostPayload is the JSON body of the create-post call
type createPostPayload struct {
	Title         string   `json:"title"`
	ContentFormat string   `json:"contentFormat"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	PublishStatus string   `json:"publishStatus"`
}

// envelope wraps every successful response from the API
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Client makes API calls to the publishing platform
type Client struct {
	base string
	http *http.Client
}

// New creates a new client
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
				Base:   hc.Transport,
			},
			Timeout: hc.Timeout,
		},
	}
}

// Identify fetches the user that owns the token
func (c *Client) Identify(ctx context.Context) (*User, error) {
	status, code, body, err := c.do(ctx, "GET", "/me", nil)
	if err != nil {
		return nil, fmt.Errorf("error calling /me: %w", err)
	}
	if code < 200 || code >= 300 {
		return nil, &AuthError{StatusCode: code, Status: status, Body: string(body)}
	}

	var u User
	if err := decode(body, &u); err != nil {
		return nil, fmt.Errorf("error decoding user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("server returned a user with no id: %s", body)
	}
	return &u, nil
}

// Publish creates a new post authored by the given user
func (c *Client) Publish(ctx context.Context, user *User, r PostRequest) (*Post, error) {
	payload := createPostPayload{
		Title:         r.Title,
		ContentFormat: r.Format,
		Content:       r.Content,
		Tags:          TruncateTags(r.Tags),
		PublishStatus: r.Visibility,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling post: %w", err)
	}

	path := "/users/" + user.ID + "/posts"
	status, code, body, err := c.do(ctx, "POST", path, buf)
	if err != nil {
		return nil, fmt.Errorf("error calling %s: %w", path, err)
	}
	if code < 200 || code >= 300 {
		return nil, &PublishError{StatusCode: code, Status: status, Body: string(body)}
	}

	var p Post
	if err := decode(body, &p); err != nil {
		return nil, fmt.Errorf("error decoding created post: %w", err)
	}
	return &p, nil
}

// TruncateTags returns at most the first MaxTags tags
func TruncateTags(tags []string) []string {
	if len(tags) <= MaxTags {
		return tags
	}
	return tags[:MaxTags]
}

// do performs a single request and reads the whole response body
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (string, int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return "", 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "utf-8")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", 0, nil, fmt.Errorf("error reading response body: %w", err)
	}
	return resp.Status, resp.StatusCode, body, nil
}

func decode(body []byte, dest interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response had no data field: %s", body)
	}
	return json.Unmarshal(env.Data, dest)
}
