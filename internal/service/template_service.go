// internal/service/template_service.go
package service

import (
	_ "embed"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unclebandit/outreach-backend/internal/model"
)

//go:embed templates.yaml
var defaultTemplates []byte

type TemplateFamily string

const (
	FamilyBusiness TemplateFamily = "business"
	FamilyLife     TemplateFamily = "life"
	FamilyFitness  TemplateFamily = "fitness"
	FamilyMindset  TemplateFamily = "mindset"
	FamilyFollowUp TemplateFamily = "follow_up"
)

var leftoverPlaceholder = regexp.MustCompile(`\{[a-z_]+\}`)

// ProspectProfile is what the generator needs to know about a recipient.
type ProspectProfile struct {
	Username  string
	FullName  string
	Niche     string
	Followers int
}

func ProfileOf(p *model.Prospect) ProspectProfile {
	return ProspectProfile{
		Username:  p.Username,
		FullName:  p.FullName,
		Niche:     p.Niche,
		Followers: p.Followers,
	}
}

// MessageTemplates picks a template by niche and fills it in for a prospect.
type MessageTemplates struct {
	mu       sync.Mutex
	rng      *rand.Rand
	families map[TemplateFamily][]string
}

// NewMessageTemplates loads the built-in catalog.
func NewMessageTemplates(rng *rand.Rand) (*MessageTemplates, error) {
	return LoadMessageTemplates(defaultTemplates, rng)
}

// LoadMessageTemplates parses a YAML catalog keyed by family name.
func LoadMessageTemplates(raw []byte, rng *rand.Rand) (*MessageTemplates, error) {
	families := map[TemplateFamily][]string{}
	if err := yaml.Unmarshal(raw, &families); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, f := range []TemplateFamily{FamilyBusiness, FamilyLife, FamilyFitness, FamilyMindset, FamilyFollowUp} {
		if len(families[f]) == 0 {
			return nil, fmt.Errorf("template family %q is empty", f)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MessageTemplates{rng: rng, families: families}, nil
}

// FamilyFor maps a free-form niche to a template family.
func FamilyFor(niche string) TemplateFamily {
	n := strings.ToLower(niche)
	switch {
	case n == "":
		return FamilyBusiness
	case strings.Contains(n, "business"), strings.Contains(n, "entrepreneur"):
		return FamilyBusiness
	case strings.Contains(n, "life"), strings.Contains(n, "personal"):
		return FamilyLife
	case strings.Contains(n, "fitness"), strings.Contains(n, "health"), strings.Contains(n, "wellness"):
		return FamilyFitness
	case strings.Contains(n, "mindset"), strings.Contains(n, "mental"), strings.Contains(n, "psychology"):
		return FamilyMindset
	}
	return FamilyBusiness
}

func (t *MessageTemplates) pick(family TemplateFamily) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.families[family]
	return list[t.rng.Intn(len(list))]
}

// Generate returns a personalized initial message.
func (t *MessageTemplates) Generate(p ProspectProfile) string {
	return t.GenerateOfType(p, model.MessageInitial)
}

func (t *MessageTemplates) GenerateOfType(p ProspectProfile, kind model.MessageType) string {
	family := FamilyFor(p.Niche)
	if kind == model.MessageFollowUp {
		family = FamilyFollowUp
	}
	return Personalize(t.pick(family), p)
}

// Personalize fills the known placeholders and drops any unknown ones.
func Personalize(template string, p ProspectProfile) string {
	niche := p.Niche
	if niche == "" {
		niche = "coaching"
	}
	out := RenderTemplate(template, map[string]string{
		"name":      firstName(p),
		"niche":     niche,
		"username":  p.Username,
		"followers": strconv.Itoa(p.Followers),
	})
	return leftoverPlaceholder.ReplaceAllString(out, "")
}

func firstName(p ProspectProfile) string {
	if fields := strings.Fields(p.FullName); len(fields) > 0 {
		return fields[0]
	}
	if p.Username != "" {
		return p.Username
	}
	return "there"
}

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
