package pagination

import (
	"encoding/base64"
	"encoding/json"
)

type Pagination struct {
	PageToken string
	PageSize  int
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor is the decoded page token payload.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, err
	}
	err = json.Unmarshal(raw, &c)
	return c, err
}

// BuildCursorPageInfo inspects an over-fetched result set (pageSize+1 rows)
// and produces the next-page token from the last row that fits the page.
func BuildCursorPageInfo[T any](items []T, pageSize int, token func(T) string) *PageInfo {
	if pageSize <= 0 {
		return nil
	}
	info := &PageInfo{}
	if len(items) > pageSize {
		info.HasMore = true
		info.NextPageToken = token(items[pageSize-1])
	}
	return info
}
