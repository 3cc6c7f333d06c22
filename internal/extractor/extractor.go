// Package extractor asks a chat model for the vocabulary of a subtitle segment.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const systemPrompt = "You are a helpful assistant specialized in language learning and vocabulary extraction. Always respond with valid JSON."

const userPrompt = `You are an expert in language teaching.

Extract language learning vocabulary from the following subtitle snippet in %s.

Guidelines:
- Extract meaningful words and phrases that would be useful for language learners
- Ignore music indicators like [música] or [music]
- Extract even single words if they are meaningful vocabulary
- Ignore proper nouns (names, places, brands), exclamations (oh, wow), and non-translatable words
- For each extracted word/phrase, provide an English translation suitable for learning
- Retain correct capitalization and spelling
- Focus on common, everyday vocabulary that learners would encounter
- Avoid comma-separated synonyms. Give the single most fitting translation
- Only add the pure words/expressions themselves, no notes

Return a JSON object {"vocabulary": [{"original": "...", "translation": "..."}]}.

Subtitle snippet to analyze:
%s
`

// ChatClient is the part of the OpenAI client used here
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor turns subtitle text into vocabulary pairs
type Extractor struct {
	client   ChatClient
	model    string
	language string
	log      logrus.FieldLogger
}

// New creates an Extractor for text in sourceLanguage (an ISO 639-1 code)
func New(client ChatClient, chatModel, sourceLanguage string, log logrus.FieldLogger) *Extractor {
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	return &Extractor{
		client:   client,
		model:    chatModel,
		language: sourceLanguage,
		log:      log,
	}
}

// NewOpenAI creates an Extractor backed by the OpenAI API
func NewOpenAI(apiKey, chatModel, sourceLanguage string, log logrus.FieldLogger) (*Extractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New(errors.CodeInvalidArg, "OpenAI API key is not configured (set OPENAI_API_KEY or openai_api_key)")
	}
	return New(openai.NewClient(apiKey), chatModel, sourceLanguage, log), nil
}

// Extract returns the vocabulary pairs of text. Failures are EXTERNAL_ERROR.
func (e *Extractor) Extract(ctx context.Context, text string) ([]model.VocabPair, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPrompt, languageLabel(e.language), text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "vocabulary request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.CodeExternal, "no response from the language model")
	}

	pairs, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"model": e.model,
		"pairs": len(pairs),
	}).Debug("vocabulary extracted")
	return pairs, nil
}

type item struct {
	Original    string `json:"original"`
	Word        string `json:"word"`
	Translation string `json:"translation"`
}

// ParseResponse reads a model answer. It accepts a bare array or an object holding the array
// under "vocabulary" or "words", and items keyed by "original" or "word". Items without a
// word are skipped.
func ParseResponse(content string) ([]model.VocabPair, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New(errors.CodeExternal, "empty response from the language model")
	}

	var items []item
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, errors.Wrap(err, errors.CodeExternal, "unparseable vocabulary response")
		}
	} else {
		var obj struct {
			Vocabulary []item `json:"vocabulary"`
			Words      []item `json:"words"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil, errors.Wrap(err, errors.CodeExternal, "unparseable vocabulary response")
		}
		items = obj.Vocabulary
		if items == nil {
			items = obj.Words
		}
	}

	pairs := make([]model.VocabPair, 0, len(items))
	for _, it := range items {
		original := it.Original
		if original == "" {
			original = it.Word
		}
		if strings.TrimSpace(original) == "" {
			continue
		}
		pairs = append(pairs, model.VocabPair{Original: original, Translation: it.Translation})
	}
	return pairs, nil
}

// languageLabel describes a language code for the prompt
func languageLabel(code string) string {
	if name := LanguageName(code); name != "" {
		return name + " (" + strings.ToLower(code) + ")"
	}
	return "the " + code + " language"
}

// LanguageName maps a language code to its English name, or "" when unknown
func LanguageName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	case "ja":
		return "Japanese"
	case "zh":
		return "Chinese"
	case "ko":
		return "Korean"
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "de":
		return "German"
	case "it":
		return "Italian"
	case "pt":
		return "Portuguese"
	case "ru":
		return "Russian"
	case "ar":
		return "Arabic"
	case "bg":
		return "Bulgarian"
	case "vi":
		return "Vietnamese"
	case "th":
		return "Thai"
	case "id":
		return "Indonesian"
	case "nl":
		return "Dutch"
	default:
		return ""
	}
}
