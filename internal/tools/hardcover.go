package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/logging"
	"github.com/dwern/persona/internal/retry"
)

const hardcoverEndpoint = "https://api.hardcover.app/v1/graphql"

// readingQuery fetches the currently-reading shelf. Hardcover status id 2 is
// "currently reading".
const readingQuery = `query CurrentlyReading {
  me {
    user_books(where: {status_id: {_eq: 2}}) {
      book {
        title
        contributions { author { name } }
      }
    }
  }
}`

// HardcoverTool fetches reading progress from the Hardcover GraphQL API.
type HardcoverTool struct {
	token    string
	endpoint string
	api      *apiClient
}

// NewHardcoverTool creates the reading tool. An empty endpoint uses the real API.
func NewHardcoverTool(token, endpoint string, log *logging.Logger) *HardcoverTool {
	if endpoint == "" {
		endpoint = hardcoverEndpoint
	}
	return &HardcoverTool{
		token:    token,
		endpoint: endpoint,
		api:      newAPIClient(log.Sub("hardcover")),
	}
}

func (t *HardcoverTool) Name() string { return "hardcover_reading" }

func (t *HardcoverTool) Description() string {
	return "Returns the books I'm currently reading, from Hardcover. Use this for questions about what I'm reading."
}

func (t *HardcoverTool) InputSchema() json.RawMessage { return emptySchema }

type hardcoverResponse struct {
	Data struct {
		Me []struct {
			UserBooks []struct {
				Book struct {
					Title         string `json:"title"`
					Contributions []struct {
						Author struct {
							Name string `json:"name"`
						} `json:"author"`
					} `json:"contributions"`
				} `json:"book"`
			} `json:"user_books"`
		} `json:"me"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (t *HardcoverTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	if t.token == "" {
		return unconfiguredMessage("Hardcover"), nil
	}

	body, err := t.query(ctx)
	if err != nil {
		return "", err
	}

	var resp hardcoverResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing Hardcover response", err)
	}
	if len(resp.Errors) > 0 {
		return "", fault.New(fault.KindTool, "Hardcover query failed: "+resp.Errors[0].Message)
	}

	var b strings.Builder
	b.WriteString("Currently reading:\n")
	count := 0
	for _, me := range resp.Data.Me {
		for _, ub := range me.UserBooks {
			authors := make([]string, 0, len(ub.Book.Contributions))
			for _, c := range ub.Book.Contributions {
				authors = append(authors, c.Author.Name)
			}
			line := "- " + ub.Book.Title
			if len(authors) > 0 {
				line += " by " + strings.Join(authors, ", ")
			}
			b.WriteString(line + "\n")
			count++
		}
	}
	if count == 0 {
		return "No books on the currently-reading shelf right now.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// query posts the GraphQL request, retrying transient failures.
func (t *HardcoverTool) query(ctx context.Context) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"query": readingQuery})
	if err != nil {
		return nil, err
	}

	return retry.Do(ctx, t.api.policy, t.api.log, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+t.token)

		resp, err := t.api.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fault.FromStatus(resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	})
}
