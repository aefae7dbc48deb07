// Package categorize assigns a category label to a subscription, first by
// keyword and then through an optional model-backed Predictor.
package categorize

import (
	"context"
	"strings"
	"time"
	"unicode"

	"spendly/internal/core"
	"spendly/internal/log"
)

const (
	DefaultTimeout = 5 * time.Second
	MaxLabelLength = 50
)

// Predictor guesses a short service type for a subscription.
type Predictor interface {
	PredictCategory(ctx context.Context, name, description string) (string, error)
}

type rule struct {
	category string
	keywords []string
}

// Rules are evaluated in order; the first matching keyword wins.
var rules = []rule{
	{"Entertainment", []string{
		"netflix", "spotify", "youtube", "hotstar", "prime", "disney", "hbo",
		"crunchyroll", "zee5", "mxplayer", "sony", "gaana",
	}},
	{"Productivity", []string{
		"notion", "slack", "asana", "trello", "clickup", "monday", "todoist",
		"evernote", "zoom", "loom", "google workspace", "office", "microsoft 365",
	}},
	{"Cloud & Storage", []string{
		"google one", "icloud", "dropbox", "onedrive", "mega", "pcloud", "aws",
		"azure", "gcp",
	}},
	{"Design & Editing", []string{
		"adobe", "canva", "figma", "sketch", "premiere", "final cut", "lightroom",
		"photoshop", "illustrator", "davinci",
	}},
	{"Finance & Business", []string{
		"quickbooks", "xero", "zoho books", "razorpay", "stripe", "paypal",
		"intuit", "wise", "revolut",
	}},
	{"Utilities", []string{
		"electricity", "water", "internet", "wifi", "broadband", "jio", "airtel",
		"vi", "phone", "sim", "mobile", "data", "bsnl",
	}},
	{"Gaming", []string{
		"playstation", "xbox", "steam", "epic", "game pass", "riot", "ea", "ubisoft",
	}},
	{"AI Tools", []string{
		"chatgpt", "claude", "midjourney", "runway", "notion ai", "copilot",
		"github copilot", "perplexity", "firefly", "gemini",
	}},
	{"Education", []string{
		"udemy", "coursera", "edx", "skillshare", "khan", "byjus", "unacademy",
		"brilliant", "datacamp",
	}},
	{"Health & Fitness", []string{
		"fitbit", "myfitnesspal", "strava", "nike training", "headspace", "calm",
	}},
}

// shortKeyword is the length up to which a keyword must match a whole word.
// "vi" or "ea" would otherwise hit "service" and "search".
const shortKeyword = 3

// MatchKeywords returns the category of the first rule with a keyword found
// in "name description", or "" when nothing matches.
func MatchKeywords(name, description string) string {
	text := strings.ToLower(name + " " + description)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, r := range rules {
		for _, kw := range r.keywords {
			if len(kw) <= shortKeyword {
				if containsWord(words, kw) {
					return r.category
				}
				continue
			}
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return ""
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// Categorizer implements keyword matching with a Predictor fallback. It never
// returns an error; anything unresolved becomes core.CategoryOther.
type Categorizer struct {
	predictor Predictor
	timeout   time.Duration
	logger    *log.Logger
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithPredictor sets the fallback used when no keyword matches.
func WithPredictor(p Predictor) Option {
	return func(c *Categorizer) {
		c.predictor = p
	}
}

// WithTimeout bounds each Predictor call.
func WithTimeout(d time.Duration) Option {
	return func(c *Categorizer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Categorizer) {
		if logger != nil {
			c.logger = logger.WithComponent(log.ComponentCategorizer)
		}
	}
}

func New(opts ...Option) *Categorizer {
	c := &Categorizer{
		timeout: DefaultTimeout,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Categorizer) Categorize(ctx context.Context, name, description string) string {
	if category := MatchKeywords(name, description); category != "" {
		return category
	}
	if c.predictor == nil {
		return core.CategoryOther
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	label, err := c.predictor.PredictCategory(ctx, name, description)
	if err != nil {
		c.logger.WarnContext(ctx, "category prediction failed",
			log.FieldSubscription, name,
			log.FieldError, err.Error(),
		)
		return core.CategoryOther
	}

	label = CleanLabel(label)
	if label == "" {
		return core.CategoryOther
	}
	c.logger.DebugContext(ctx, "category predicted",
		log.FieldSubscription, name,
		log.FieldCategory, label,
	)
	return label
}

// CleanLabel trims model output down to a usable category label.
func CleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'`.*")
	s = strings.Join(strings.Fields(s), " ")

	if r := []rune(s); len(r) > MaxLabelLength {
		s = strings.TrimSpace(string(r[:MaxLabelLength]))
	}
	return s
}
