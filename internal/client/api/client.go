// Package api is the HTTP client for the vault backend. It speaks the JSON
// REST surface and maps response statuses back onto the shared sentinel
// errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blockvault/blockvault/internal/common"
)

type Client struct {
	baseURL     string
	http        *http.Client
	accessToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAccessToken sets the Bearer token used on authenticated calls.
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Profile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	IsAdmin      bool   `json:"is_admin"`
	HasPublicKey bool   `json:"has_public_key"`
	KeyVersion   int64  `json:"key_version"`
}

type File struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Folder    string    `json:"folder"`
	Sha256    string    `json:"sha256"`
	SizeBytes int64     `json:"size_bytes"`
	AnchorRef string    `json:"anchor_ref"`
	CreatedAt time.Time `json:"created_at"`
}

type FileList struct {
	Files      []File `json:"files"`
	NextCursor string `json:"next_cursor"`
}

type Share struct {
	ID           string     `json:"id"`
	FileID       string     `json:"file_id"`
	OwnerID      string     `json:"owner_id"`
	RecipientID  string     `json:"recipient_id"`
	EncryptedKey []byte     `json:"encrypted_key"`
	KeyVersion   int64      `json:"key_version"`
	Note         string     `json:"note"`
	Status       string     `json:"status"`
	ExpiresAt    *time.Time `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ShareList struct {
	Shares     []Share `json:"shares"`
	NextCursor string  `json:"next_cursor"`
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) Register(ctx context.Context, username string, salt, verifier []byte) error {
	body := map[string]any{"username": username, "salt": salt, "verifier": verifier}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

func (c *Client) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp struct {
		Salt []byte `json:"salt"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/salt", map[string]string{"username": username}, &resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

func (c *Client) Login(ctx context.Context, username string, verifier []byte) (*TokenPair, error) {
	body := map[string]any{"username": username, "verifier": verifier}
	pair := &TokenPair{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair := &TokenPair{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken}, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	p := &Profile{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/profile", nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) RegisterPublicKey(ctx context.Context, pubPEM []byte) (int64, error) {
	var resp struct {
		KeyVersion int64 `json:"key_version"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/public_key", map[string]string{"public_key": string(pubPEM)}, &resp); err != nil {
		return 0, err
	}
	return resp.KeyVersion, nil
}

func (c *Client) RemovePublicKey(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/public_key", nil, nil)
}

// Upload sends the sealed ciphertext plus client-computed metadata as a
// multipart form.
func (c *Client) Upload(ctx context.Context, name string, ciphertext []byte, sha256hex string, sizeBytes int64) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	_ = mw.WriteField("name", name)
	_ = mw.WriteField("sha256", sha256hex)
	_ = mw.WriteField("size_bytes", strconv.FormatInt(sizeBytes, 10))

	part, err := mw.CreateFormFile("content", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(ciphertext); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	file := &File{}
	if err := c.do(req, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (c *Client) ListFiles(ctx context.Context, limit int, after string) (*FileList, error) {
	path := fmt.Sprintf("/api/files?limit=%d&after=%s", limit, after)
	list := &FileList{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	f := &File{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/"+fileID, nil, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Download resolves the presigned URL for the file and fetches the
// ciphertext from object storage.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/"+fileID+"/download", nil, &resp); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resp.URL, nil)
	if err != nil {
		return nil, err
	}
	blobResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer blobResp.Body.Close()

	if blobResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob fetch status %d", blobResp.StatusCode)
	}
	return io.ReadAll(blobResp.Body)
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/files/"+fileID, nil, nil)
}

// UpdateFile renames the file and/or moves it between folders. Nil fields
// stay untouched; an empty folder moves the file out of its folder.
func (c *Client) UpdateFile(ctx context.Context, fileID string, name, folder *string) (*File, error) {
	body := map[string]any{}
	if name != nil {
		body["name"] = *name
	}
	if folder != nil {
		body["folder"] = *folder
	}
	f := &File{}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/files/"+fileID, body, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	var resp struct {
		Folders []string `json:"folders"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/folders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

// VerifyResult reports whether the server still holds the ciphertext blob
// behind a file record.
type VerifyResult struct {
	FileID    string `json:"file_id"`
	HasBlob   bool   `json:"has_encrypted_blob"`
	AnchorRef string `json:"anchor_ref"`
	Sha256    string `json:"sha256"`
}

func (c *Client) VerifyFile(ctx context.Context, fileID string) (*VerifyResult, error) {
	res := &VerifyResult{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/"+fileID+"/verify", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CreateShare(ctx context.Context, fileID, recipient string, passphrase []byte, note string, expiresAt *time.Time) (*Share, error) {
	body := map[string]any{
		"recipient":  recipient,
		"passphrase": passphrase,
		"note":       note,
	}
	if expiresAt != nil {
		body["expires_at"] = expiresAt
	}
	share := &Share{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/files/"+fileID+"/share", body, share); err != nil {
		return nil, err
	}
	return share, nil
}

func (c *Client) IncomingShares(ctx context.Context, limit int, after string) (*ShareList, error) {
	return c.listShares(ctx, "incoming", limit, after)
}

func (c *Client) OutgoingShares(ctx context.Context, limit int, after string) (*ShareList, error) {
	return c.listShares(ctx, "outgoing", limit, after)
}

func (c *Client) listShares(ctx context.Context, direction string, limit int, after string) (*ShareList, error) {
	path := fmt.Sprintf("/api/shares/%s?limit=%d&after=%s", direction, limit, after)
	list := &ShareList{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) RevokeShare(ctx context.Context, shareID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/shares/"+shareID, nil, nil)
}

// --- transport helpers ---

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case code == http.StatusForbidden:
		return common.ErrorForbidden
	case code == http.StatusNotFound:
		return common.ErrorNotFound
	case code == http.StatusBadRequest:
		return common.ErrorValidation
	case code == http.StatusConflict:
		return common.ErrorRecipientKeyMissing
	case code == http.StatusServiceUnavailable:
		return common.ErrorStorageUnavailable
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
