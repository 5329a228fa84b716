package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// DefaultOpenAIURL is the chat completions endpoint.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// SnippetLength is the number of note runes kept on each record.
const SnippetLength = 80

// OpenAI extracts tasks with the OpenAI chat completions API.
type OpenAI struct {
	apiKey      string
	model       string
	url         string
	maxTokens   int
	temperature float64
	domains     []string
	client      *http.Client
	now         func() time.Time
	logger      *logging.Logger
}

// OpenAIOption configures an OpenAI extractor.
type OpenAIOption func(*OpenAI)

// WithURL overrides the API endpoint.
func WithURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.url = url }
}

// WithModel overrides the configured model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// WithClock sets the clock used for "today" in prompts.
func WithClock(now func() time.Time) OpenAIOption {
	return func(o *OpenAI) { o.now = now }
}

// WithOpenAILogger sets the logger.
func WithOpenAILogger(l *logging.Logger) OpenAIOption {
	return func(o *OpenAI) { o.logger = l }
}

// NewOpenAI creates an OpenAI extractor. The API key is required.
func NewOpenAI(apiKey string, cfg *config.Config, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, clierr.New(clierr.InvalidInput,
			"OpenAI API key not set (set OPENAI_API_KEY or KEEPBRIEF_OPENAI_API_KEY)")
	}
	o := &OpenAI{
		apiKey:      apiKey,
		model:       cfg.Extractor.Model,
		url:         DefaultOpenAIURL,
		maxTokens:   cfg.Extractor.MaxTokens,
		temperature: cfg.Extractor.Temperature,
		domains:     cfg.DomainNames(),
		client:      &http.Client{Timeout: cfg.ExtractorTimeout()},
		now:         time.Now,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Extract implements Extractor.
func (o *OpenAI) Extract(ctx context.Context, note notes.Note) (Output, error) {
	byNote, err := o.ExtractBatch(ctx, []notes.Note{note})
	if err != nil {
		return Output{}, err
	}
	return byNote[note.ID], nil
}

// ExtractBatch implements BatchExtractor.
func (o *OpenAI) ExtractBatch(ctx context.Context, batch []notes.Note) (map[string]Output, error) {
	content, err := o.callAPI(ctx, systemPrompt(o.domains), userPrompt(batch, o.now()))
	if err != nil {
		return nil, clierr.Wrap(clierr.ExtractionFailed, err, "extraction request failed")
	}

	parsed, err := parseResponse(content)
	if err != nil {
		return nil, clierr.Wrap(clierr.ExtractionFailed, err, "invalid extraction response")
	}

	return o.toRecords(parsed, batch), nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenAI) callAPI(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    o.temperature,
		MaxTokens:      o.maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, truncate(string(body), 300))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Choices[0].Message.Content, nil
}

type extraction struct {
	Tasks      []extractedTask `json:"tasks"`
	Ideas      []noteItem      `json:"ideas"`
	References []noteItem      `json:"references"`
	Vague      []vagueNote     `json:"vague"`
}

type extractedTask struct {
	Task          string   `json:"task"`
	Domain        string   `json:"domain"`
	UrgencyWords  []string `json:"urgency_words"`
	Deadline      *string  `json:"deadline"`
	SourceNoteIDs []string `json:"source_note_ids"`
}

type noteItem struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Domain       string `json:"domain"`
	SourceNoteID string `json:"source_note_id"`
}

type vagueNote struct {
	SourceNoteID string `json:"source_note_id"`
	Reason       string `json:"reason"`
}

func parseResponse(resp string) (*extraction, error) {
	// Models sometimes wrap JSON in a markdown code block.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result extraction
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, truncate(resp, 200))
	}
	return &result, nil
}

// toRecords validates the model output against the batch. Tasks, ideas and
// references that name no note from the batch or have no text are dropped.
// Time fields come from the notes, never from the model.
func (o *OpenAI) toRecords(parsed *extraction, batch []notes.Note) map[string]Output {
	byID := make(map[string]notes.Note, len(batch))
	for _, n := range batch {
		byID[n.ID] = n
	}

	out := make(map[string]Output)
	for _, t := range parsed.Tasks {
		text := strings.TrimSpace(t.Task)
		note, ok := firstKnown(t.SourceNoteIDs, byID)
		if text == "" || !ok {
			o.logger.Warn("dropping malformed task", "task", text, "source_note_ids", t.SourceNoteIDs)
			continue
		}

		rec := task.Extracted{
			Text:            text,
			Domain:          o.closedDomain(t.Domain),
			UrgencyKeywords: cleanWords(t.UrgencyWords),
			LastEdited:      note.UpdatedAt,
			SourceNoteID:    note.ID,
			Snippet:         note.Snippet(SnippetLength),
		}
		if t.Deadline != nil && *t.Deadline != "" {
			if d, err := date.Parse(*t.Deadline); err == nil {
				rec.Deadline = &d
			} else {
				o.logger.Debug("ignoring unparseable deadline", "note_id", note.ID, "deadline", *t.Deadline)
			}
		}
		appendOutput(out, note.ID, func(r *Output) { r.Tasks = append(r.Tasks, rec) })
	}

	for _, it := range parsed.Ideas {
		item, ok := o.toItem(it, byID, "idea")
		if ok {
			appendOutput(out, item.SourceNoteID, func(r *Output) { r.Ideas = append(r.Ideas, item) })
		}
	}
	for _, it := range parsed.References {
		item, ok := o.toItem(it, byID, "reference")
		if ok {
			item.Domain = ""
			appendOutput(out, item.SourceNoteID, func(r *Output) { r.References = append(r.References, item) })
		}
	}

	for _, v := range parsed.Vague {
		note, ok := byID[v.SourceNoteID]
		if !ok {
			continue
		}
		rec := task.Extracted{
			Domain:       task.Uncategorized,
			LastEdited:   note.UpdatedAt,
			IsVague:      true,
			SourceNoteID: note.ID,
			Snippet:      note.Snippet(SnippetLength),
			Reason:       strings.TrimSpace(v.Reason),
		}
		appendOutput(out, note.ID, func(r *Output) { r.Tasks = append(r.Tasks, rec) })
	}
	return out
}

func appendOutput(out map[string]Output, noteID string, add func(*Output)) {
	r := out[noteID]
	add(&r)
	out[noteID] = r
}

func (o *OpenAI) toItem(it noteItem, byID map[string]notes.Note, kind string) (task.Item, bool) {
	item := task.Item{
		Title:        strings.TrimSpace(it.Title),
		Content:      strings.TrimSpace(it.Content),
		SourceNoteID: it.SourceNoteID,
	}
	if _, ok := byID[it.SourceNoteID]; !ok || (item.Title == "" && item.Content == "") {
		o.logger.Warn("dropping malformed "+kind, "title", item.Title, "source_note_id", it.SourceNoteID)
		return task.Item{}, false
	}
	if it.Domain != "" {
		item.Domain = o.closedDomain(it.Domain)
	}
	return item, true
}

func (o *OpenAI) closedDomain(label string) string {
	d := task.NormalizeDomain(label)
	if slices.Contains(o.domains, d) {
		return d
	}
	return task.Uncategorized
}

func firstKnown(ids []string, byID map[string]notes.Note) (notes.Note, bool) {
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			return n, true
		}
	}
	return notes.Note{}, false
}

func cleanWords(words []string) []string {
	var out []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
