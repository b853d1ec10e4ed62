package service_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func TestFamilyFor(t *testing.T) {
	tests := map[string]service.TemplateFamily{
		"":                    service.FamilyBusiness,
		"Business Coaching":   service.FamilyBusiness,
		"serial entrepreneur": service.FamilyBusiness,
		"life coach":          service.FamilyLife,
		"personal growth":     service.FamilyLife,
		"Health & Wellness":   service.FamilyFitness,
		"fitness":             service.FamilyFitness,
		"mental performance":  service.FamilyMindset,
		"psychology":          service.FamilyMindset,
		"real estate":         service.FamilyBusiness,
	}
	for niche, want := range tests {
		assert.Equal(t, want, service.FamilyFor(niche), niche)
	}
}

func TestPersonalize(t *testing.T) {
	p := service.ProspectProfile{Username: "grow.with.ana", FullName: "Ana Lopez", Niche: "business", Followers: 12400}
	got := service.Personalize("Hi {name} (@{username}), {followers} fans of {niche}{unknown}!", p)
	assert.Equal(t, "Hi Ana (@grow.with.ana), 12400 fans of business!", got)
}

func TestPersonalizeFallbacks(t *testing.T) {
	assert.Equal(t, "Hi jo.park, coaching",
		service.Personalize("Hi {name}, {niche}", service.ProspectProfile{Username: "jo.park"}))
	assert.Equal(t, "Hi there",
		service.Personalize("Hi {name}", service.ProspectProfile{}))
}

func TestGenerateNeverLeaksPlaceholders(t *testing.T) {
	tmpl, err := service.NewMessageTemplates(rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	profiles := []service.ProspectProfile{
		{Username: "a", FullName: "Ana Lopez", Niche: "life coaching"},
		{Username: "b", Niche: "fitness"},
		{Username: "c", Niche: "mindset"},
		{},
	}
	for i := 0; i < 50; i++ {
		for _, p := range profiles {
			body := tmpl.Generate(p)
			assert.NotEmpty(t, body)
			assert.NotContains(t, body, "{")

			follow := tmpl.GenerateOfType(p, model.MessageFollowUp)
			assert.NotEmpty(t, follow)
			assert.NotContains(t, follow, "{")
		}
	}
}

func TestLoadMessageTemplatesRequiresEveryFamily(t *testing.T) {
	_, err := service.LoadMessageTemplates([]byte("business:\n  - \"Hi {name}\"\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "life")

	raw := strings.Join([]string{
		`business: ["B {name}"]`,
		`life: ["L {name}"]`,
		`fitness: ["F {name}"]`,
		`mindset: ["M {name}"]`,
		`follow_up: ["U {name}"]`,
	}, "\n")
	tmpl, err := service.LoadMessageTemplates([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "F Marc", tmpl.Generate(service.ProspectProfile{FullName: "Marc Dubois", Niche: "fitness"}))
	assert.Equal(t, "U Marc", tmpl.GenerateOfType(service.ProspectProfile{FullName: "Marc"}, model.MessageFollowUp))
}
