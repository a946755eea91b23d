package correct

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Client calls a LanguageTool-compatible /check endpoint.
type Client struct {
	baseURL    string
	username   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, username, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type checkResponse struct {
	Matches []struct {
		Message      string `json:"message"`
		Offset       int    `json:"offset"`
		Length       int    `json:"length"`
		Replacements []struct {
			Value string `json:"value"`
		} `json:"replacements"`
		Rule struct {
			ID          string `json:"id"`
			Description string `json:"description"`
		} `json:"rule"`
	} `json:"matches"`
}

// Check sends text for correction. Offsets in the response count UTF-16 code
// units and are converted to rune offsets before returning.
func (c *Client) Check(ctx context.Context, text, language string) ([]Match, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", language)
	if c.username != "" && c.apiKey != "" {
		form.Set("username", c.username)
		form.Set("apiKey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var cr checkResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	units := utf16Starts(text)
	matches := make([]Match, 0, len(cr.Matches))
	for _, m := range cr.Matches {
		start, ok1 := units.runeOffset(m.Offset)
		end, ok2 := units.runeOffset(m.Offset + m.Length)
		if !ok1 || !ok2 || end < start {
			continue
		}
		match := Match{
			Offset:  start,
			Length:  end - start,
			Message: m.Message,
			Rule:    Rule{ID: m.Rule.ID, Description: m.Rule.Description},
		}
		for _, r := range m.Replacements {
			match.Replacements = append(match.Replacements, Replacement{Value: r.Value})
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// utf16Index maps UTF-16 offsets to rune offsets. Entry i is the UTF-16
// offset at which rune i starts; the final entry is the total length.
type utf16Index []int

func utf16Starts(s string) utf16Index {
	idx := make(utf16Index, 0, utf8.RuneCountInString(s)+1)
	n := 0
	for _, r := range s {
		idx = append(idx, n)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return append(idx, n)
}

// runeOffset fails for offsets that split a surrogate pair or fall outside
// the text.
func (u utf16Index) runeOffset(units int) (int, bool) {
	lo, hi := 0, len(u)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case u[mid] == units:
			return mid, true
		case u[mid] < units:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}
