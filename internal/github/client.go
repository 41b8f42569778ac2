package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/streaky/streakd/internal/domain"
)

// ContributionChecker abstracts the contribution-data collaborator.
// The token is per-call because each user brings their own PAT.
// Mocking this interface in tests gives full control over upstream
// behaviour without making real HTTP calls.
type ContributionChecker interface {
	ContributionsToday(ctx context.Context, token, username string) (int, error)
	CurrentStreak(ctx context.Context, token, username string) (int, error)
}

// Client queries the GitHub GraphQL contribution calendar.
// The endpoint is injected from config so tests can point to a local mock.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

const contributionsQuery = `
query($username: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $username) {
    contributionsCollection(from: $from, to: $to) {
      contributionCalendar {
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

const streakQuery = `
query($username: String!) {
  user(login: $username) {
    contributionsCollection {
      contributionCalendar {
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type contributionDay struct {
	Date              string `json:"date"`
	ContributionCount int    `json:"contributionCount"`
}

type graphQLResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					Weeks []struct {
						ContributionDays []contributionDay `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ContributionsToday returns the user's contribution count for today (UTC).
func (c *Client) ContributionsToday(ctx context.Context, token, username string) (int, error) {
	today := time.Now().UTC().Format("2006-01-02")
	days, err := c.fetchCalendar(ctx, token, contributionsQuery, map[string]any{
		"username": username,
		"from":     today + "T00:00:00Z",
		"to":       today + "T23:59:59Z",
	})
	if err != nil {
		return 0, err
	}

	for _, day := range days {
		if day.Date == today {
			return day.ContributionCount, nil
		}
	}
	return 0, nil
}

// CurrentStreak walks the contribution calendar backwards from today and
// counts consecutive days with at least one contribution. A zero-count
// today does not end the streak (the day is not over yet); any earlier
// zero does.
func (c *Client) CurrentStreak(ctx context.Context, token, username string) (int, error) {
	days, err := c.fetchCalendar(ctx, token, streakQuery, map[string]any{
		"username": username,
	})
	if err != nil {
		return 0, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	streak := 0
	for i := len(days) - 1; i >= 0; i-- {
		day := days[i]
		if day.Date > today {
			continue
		}
		if day.ContributionCount == 0 {
			if day.Date == today {
				continue // grace: today can still get a commit
			}
			break
		}
		streak++
	}
	return streak, nil
}

// fetchCalendar runs a contribution-calendar query and flattens the weeks
// into a chronological day slice.
func (c *Client) fetchCalendar(ctx context.Context, token, query string, variables map[string]any) ([]contributionDay, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "streakd")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contribution request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API status %d", resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		first := gqlResp.Errors[0]
		if strings.Contains(strings.ToLower(first.Message), "rate limit") ||
			strings.EqualFold(first.Type, "RATE_LIMITED") {
			return nil, domain.ErrRateLimited
		}
		if strings.EqualFold(first.Type, "NOT_FOUND") {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("GraphQL error: %s", first.Message)
	}

	if gqlResp.Data.User == nil {
		return nil, domain.ErrUserNotFound
	}

	var days []contributionDay
	for _, week := range gqlResp.Data.User.ContributionsCollection.ContributionCalendar.Weeks {
		days = append(days, week.ContributionDays...)
	}
	return days, nil
}

// compile-time check that Client implements ContributionChecker
var _ ContributionChecker = (*Client)(nil)
