package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"internbot/internal/chat"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is a minimal Bot API client.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(botToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: defaultBaseURL, botToken: botToken, httpClient: httpClient}
}

// WithBaseURL points the client at another API host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// APIError is a non-2xx answer from the Bot API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports rate limiting and server-side failures.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("telegram %s decode: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s error: %s", method, parsed.Description)
	}
	if out != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return fmt.Errorf("telegram %s decode result: %w", method, err)
		}
	}
	return nil
}

// Send implements chat.Sender.
func (c *Client) Send(ctx context.Context, msg chat.Message) error {
	payload := map[string]any{
		"chat_id": msg.ChatID,
		"text":    msg.Text,
	}
	if msg.ParseMode != "" {
		payload["parse_mode"] = msg.ParseMode
	}
	if markup := replyMarkup(msg); markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

func replyMarkup(msg chat.Message) any {
	switch {
	case msg.RequestContact != "":
		return ReplyKeyboardMarkup{
			Keyboard:        [][]KeyboardButton{{{Text: msg.RequestContact, RequestContact: true}}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case len(msg.Buttons) > 0:
		rows := make([][]InlineKeyboardButton, 0, len(msg.Buttons))
		for _, row := range msg.Buttons {
			buttons := make([]InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, InlineKeyboardButton{Text: b.Text, CallbackData: b.Payload})
			}
			rows = append(rows, buttons)
		}
		return InlineKeyboardMarkup{InlineKeyboard: rows}
	case msg.RemoveKeyboard:
		return ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	return nil
}

// SendDocument uploads a file with multipart/form-data.
func (c *Client) SendDocument(ctx context.Context, doc chat.Document) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("chat_id", strconv.FormatInt(doc.ChatID, 10)); err != nil {
		return fmt.Errorf("telegram sendDocument encode: %w", err)
	}
	if doc.Caption != "" {
		if err := writer.WriteField("caption", doc.Caption); err != nil {
			return fmt.Errorf("telegram sendDocument encode: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", doc.Filename)
	if err != nil {
		return fmt.Errorf("telegram sendDocument encode: %w", err)
	}
	if _, err := io.Copy(part, doc.Content); err != nil {
		return fmt.Errorf("telegram sendDocument encode: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("telegram sendDocument encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("telegram sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, "sendDocument", nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}
