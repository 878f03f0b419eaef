package llm

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/promptveil/veil/internal/logger"
)

// SimulatedClient produces canned responses keyed on the masked prompt's
// content. Responses reference placeholder tokens verbatim so the unmasking
// path gets exercised end to end without an upstream model.
type SimulatedClient struct {
	logger *logger.Logger
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewSimulatedClient creates a simulation client.
func NewSimulatedClient(log *logger.Logger) *SimulatedClient {
	return &SimulatedClient{
		logger: log,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSimulatedClientWithSeed creates a simulation client with a fixed seed,
// for deterministic tests.
func NewSimulatedClientWithSeed(log *logger.Logger, seed int64) *SimulatedClient {
	return &SimulatedClient{
		logger: log,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Name returns the client identifier.
func (c *SimulatedClient) Name() string { return "simulate" }

var mentalHealthResponses = []string{
	"I understand you're dealing with [MENTAL_HEALTH_0]. It's important to seek professional help. " +
		"Consider talking to a licensed therapist or counselor who can provide personalized support.",
	"Dealing with [MENTAL_HEALTH_0] can be challenging. Reaching out to a mental health professional, " +
		"practicing self-care, and connecting with supportive friends or family can all help.",
	"Thank you for sharing about [MENTAL_HEALTH_0]. Many people experience similar challenges, and " +
		"professional support can make a significant difference.",
}

var diseaseResponses = []string{
	"For [DISEASE_0], it's crucial to work closely with healthcare professionals. They can provide " +
		"proper diagnosis, treatment plans, and ongoing monitoring.",
	"Managing [DISEASE_0] requires comprehensive medical care. Consulting with a specialist and " +
		"following prescribed treatment plans is important.",
	"Living with [DISEASE_0] can present challenges, but modern medicine offers many treatment " +
		"options. Work with your healthcare provider to develop a plan that works for you.",
}

var contactResponses = []string{
	"I can help you with that. Based on your contact information ([EMAIL_0] or [PHONE_0]), make sure " +
		"to keep your details updated and verify them before sharing with others.",
	"Thanks for providing your contact details. For privacy reasons, always be careful about where " +
		"you share information like [EMAIL_0] and [PHONE_0].",
}

var locationResponses = []string{
	"In [LOCATION_0], there are various resources available. What specific assistance are you looking for?",
	"For someone in [LOCATION_0], I recommend checking local resources and services. Many areas have " +
		"community programs and support systems available.",
}

var ageResponses = []string{
	"At [AGE_0], it's important to consider age-appropriate recommendations. Everyone's situation is " +
		"unique, so personalized advice from professionals is valuable.",
	"For someone who is [AGE_0], there are specific considerations to keep in mind. Professional " +
		"consultation is recommended for personalized guidance.",
}

var generalResponses = []string{
	"I understand your concern. Based on the information you've provided, I recommend consulting " +
		"with appropriate professionals who can give you personalized advice.",
	"Thank you for your question. While I can provide general information, it's always best to seek " +
		"professional advice for personal matters.",
	"I'm here to help. Remember that professional experts in relevant fields can provide the most " +
		"accurate and personalized assistance. How can I assist you further?",
}

// Generate picks a response class from keywords in the masked prompt.
func (c *SimulatedClient) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	lower := strings.ToLower(prompt)

	switch {
	case containsAny(lower, "mental_health", "anxiety", "depression", "stress"):
		return c.pick(mentalHealthResponses), nil
	case containsAny(lower, "disease", "diabetes", "cancer", "health condition"):
		return c.pick(diseaseResponses), nil
	case containsAny(lower, "email", "phone", "contact"):
		return c.pick(contactResponses), nil
	case containsAny(lower, "location", "city", "state", "country"):
		return c.pick(locationResponses), nil
	case strings.Contains(lower, "age"):
		return c.pick(ageResponses), nil
	default:
		return c.pick(generalResponses), nil
	}
}

func (c *SimulatedClient) pick(responses []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return responses[c.rng.Intn(len(responses))]
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
