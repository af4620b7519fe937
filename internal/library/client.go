package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Gateway is the full set of operations the rest of shelf performs against
// the library API. It is implemented by *Client and by test fakes.
type Gateway interface {
	SetToken(token string)
	Token() string

	Login(ctx context.Context, username, password string) (TokenPair, error)
	CurrentUser(ctx context.Context) (User, error)

	ListUsers(ctx context.Context, role Role) ([]User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (User, error)
	UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListBooks(ctx context.Context, query BookQuery) ([]Book, error)
	CreateBook(ctx context.Context, req CreateBookRequest) (Book, error)
	UpdateBook(ctx context.Context, id int64, req UpdateBookRequest) (Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListLoans(ctx context.Context, query LoanQuery) ([]Loan, error)
	GetLoan(ctx context.Context, id int64) (Loan, error)
	CreateLoan(ctx context.Context, req CreateLoanRequest) (Loan, error)
	ReturnLoan(ctx context.Context, id int64) (Loan, error)
	DeleteLoan(ctx context.Context, id int64) error
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Client talks to the library HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string

	mu    sync.RWMutex
	token string
}

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	defaultUserAgent      = "shelf/0.1"
	defaultRequestTimeout = 10 * time.Second
	maxErrorBody          = 64 * 1024
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultRequestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised API origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	body := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/token/", body, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// CurrentUser resolves the identity behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/users/me/", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ListUsers lists accounts, optionally restricted to one role.
func (c *Client) ListUsers(ctx context.Context, role Role) ([]User, error) {
	values := url.Values{}
	if role != "" {
		values.Set("role", string(role))
	}
	var users []User
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/users/", RawQuery: values.Encode()}, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/api/users/", req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser patches an account.
func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPatch, entityPath("users", id), req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, entityPath("users", id), nil, nil)
}

// ListBooks lists the catalog, applying any server-side filters in query.
func (c *Client) ListBooks(ctx context.Context, query BookQuery) ([]Book, error) {
	values := url.Values{}
	if title := strings.TrimSpace(query.Title); title != "" {
		values.Set("title", title)
	}
	if author := strings.TrimSpace(query.Author); author != "" {
		values.Set("author_name", author)
	}
	if genre := strings.TrimSpace(query.Genre); genre != "" {
		values.Set("genre_name", genre)
	}
	if query.Available != nil {
		values.Set("available", strconv.FormatBool(*query.Available))
	}
	var books []Book
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/books/", RawQuery: values.Encode()}, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// CreateBook adds a title to the catalog.
func (c *Client) CreateBook(ctx context.Context, req CreateBookRequest) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/api/books/", req, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// UpdateBook patches a catalog entry.
func (c *Client) UpdateBook(ctx context.Context, id int64, req UpdateBookRequest) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPatch, entityPath("books", id), req, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteBook removes a catalog entry.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, entityPath("books", id), nil, nil)
}

// ListLoans lists loans visible to the caller. Students only see their own.
func (c *Client) ListLoans(ctx context.Context, query LoanQuery) ([]Loan, error) {
	values := url.Values{}
	if query.IsReturned != nil {
		values.Set("is_returned", strconv.FormatBool(*query.IsReturned))
	}
	var loans []Loan
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/loans/", RawQuery: values.Encode()}, nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// GetLoan fetches a single loan.
func (c *Client) GetLoan(ctx context.Context, id int64) (Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodGet, entityPath("loans", id), nil, &loan); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// CreateLoan borrows a book.
func (c *Client) CreateLoan(ctx context.Context, req CreateLoanRequest) (Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodPost, "/api/loans/", req, &loan); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// ReturnLoan marks a loan returned and returns the updated record.
func (c *Client) ReturnLoan(ctx context.Context, id int64) (Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodPatch, entityPath("loans", id)+"return/", nil, &loan); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// DeleteLoan removes a loan record.
func (c *Client) DeleteLoan(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, entityPath("loans", id), nil, nil)
}

func entityPath(kind string, id int64) string {
	return "/api/" + kind + "/" + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	return c.doURL(ctx, method, &url.URL{Path: path}, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fmt.Errorf("%s %s: %w", method, rel.Path, ctxErr)
		}
		log.Printf("api %s %s failed after %s (request %s): %v", method, rel.Path, time.Since(started).Round(time.Millisecond), requestID, err)
		return &TransportError{URL: c.baseURL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	log.Printf("api %s %s -> %d in %s (request %s)", method, rel.Path, resp.StatusCode, time.Since(started).Round(time.Millisecond), requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteRequestError{
			Method:  method,
			Path:    rel.Path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, raw),
		}
	}
	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
