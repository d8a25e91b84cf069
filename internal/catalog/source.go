package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

// Locales the catalog keeps names for. Combined names read "primary(secondary)".
var (
	PrimaryLocale   = language.Japanese
	SecondaryLocale = language.TraditionalChinese
)

// DefaultURLTemplate points at the community master data mirrors.
const DefaultURLTemplate = "https://raw.githubusercontent.com/Sekai-World/{repo}/refs/heads/main/{file}"

// Default repositories per locale.
const (
	DefaultPrimaryRepo   = "sekai-master-db-diff"
	DefaultSecondaryRepo = "sekai-master-db-tc-diff"
)

// Source fetches one (category, locale) name table.
type Source interface {
	Fetch(ctx context.Context, category Category, locale language.Tag) (map[int]string, error)
}

const listSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name"],
    "properties": {
      "id": {"type": "integer"},
      "name": {"type": "string"}
    }
  }
}`

// HTTPSource downloads name lists from a URL template with {repo} and {file}
// placeholders.
type HTTPSource struct {
	client   *http.Client
	template string
	repos    map[language.Tag]string
	schema   *jsonschema.Schema
}

// NewHTTPSource builds a source. repos maps each locale to the repository
// identifier substituted for {repo}.
func NewHTTPSource(client *http.Client, template string, repos map[language.Tag]string) (*HTTPSource, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if template == "" {
		template = DefaultURLTemplate
	}
	schema, err := jsonschema.CompileString("catalog-list.schema.json", listSchema)
	if err != nil {
		return nil, fmt.Errorf("compile list schema: %w", err)
	}
	return &HTTPSource{
		client:   client,
		template: template,
		repos:    repos,
		schema:   schema,
	}, nil
}

// URL returns the address of the list for category in locale.
func (s *HTTPSource) URL(category Category, locale language.Tag) (string, error) {
	repo, ok := s.repos[locale]
	if !ok {
		return "", fmt.Errorf("no repository configured for locale %s", locale)
	}
	r := strings.NewReplacer("{repo}", repo, "{file}", category.File())
	return r.Replace(s.template), nil
}

func (s *HTTPSource) Fetch(ctx context.Context, category Category, locale language.Tag) (map[int]string, error) {
	url, err := s.URL(category, locale)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return s.parse(body)
}

func (s *HTTPSource) parse(body []byte) (map[int]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode list: invalid JSON")
	}
	list := gjson.ParseBytes(body)
	if err := s.schema.Validate(list.Value()); err != nil {
		return nil, fmt.Errorf("validate list: %w", err)
	}

	names := make(map[int]string)
	list.ForEach(func(_, entry gjson.Result) bool {
		names[int(entry.Get("id").Int())] = entry.Get("name").String()
		return true
	})
	return names, nil
}
