package internal

import (
	"testing"
)

func textMessageEvent() Event {
	payload := []byte(`{"eventType":"message","timestamp":1700000000000,"webhookEventId":"W1","message":{"id":"m1","type":"text","text":"order #42 please"}}`)
	return Event{Provider: "line", Name: "message", WebhookEventID: "W1", RawPayload: payload}
}

func evaluateRules(t *testing.T, cfg RulesConfig, event Event) []RuleMatch {
	t.Helper()
	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("NewRuleEngine: %v", err)
	}
	return engine.Evaluate(event)
}

// TestRuleFlatFieldMatch tests a rule on a top-level record field.
func TestRuleFlatFieldMatch(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `eventType == "message"`, Emit: EmitList{"inbox"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "inbox" {
		t.Fatalf("expected single inbox match, got %v", matches)
	}
}

// TestRuleDottedFieldMatch tests dotted references resolved from the flattened record.
func TestRuleDottedFieldMatch(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `message.type == "text"`, Emit: EmitList{"chat.text"}},
		{When: `message.type == "sticker"`, Emit: EmitList{"chat.stickers"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "chat.text" {
		t.Fatalf("expected chat.text only, got %v", matches)
	}
}

// TestRuleJSONPathMatch tests JSONPath references resolved against the raw record.
func TestRuleJSONPathMatch(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `$.message.type == "text" && $.eventType == "message"`, Emit: EmitList{"chat.text"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "chat.text" {
		t.Fatalf("expected chat.text, got %v", matches)
	}
}

// TestRuleIndexedFieldMatch tests array-index references.
func TestRuleIndexedFieldMatch(t *testing.T) {
	event := Event{
		Provider:   "line",
		Name:       "memberJoined",
		RawPayload: []byte(`{"eventType":"memberJoined","joined":{"members":[{"type":"user","userId":"U2"},{"type":"user","userId":"U3"}]}}`),
	}

	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `joined.members[0].userId == "U2"`, Emit: EmitList{"group.joins"}},
	}}, event)

	if len(matches) != 1 || matches[0].Topic != "group.joins" {
		t.Fatalf("expected group.joins, got %v", matches)
	}
}

// TestRuleMissingFieldLenient tests that a missing field compares as nil without failing the rule.
func TestRuleMissingFieldLenient(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `message.fileName == "report.pdf"`, Emit: EmitList{"files"}},
		{When: `eventType == "message"`, Emit: EmitList{"inbox"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "inbox" {
		t.Fatalf("expected inbox only, got %v", matches)
	}
}

// TestRuleMissingFieldStrict tests that strict mode fails rules referencing absent fields.
func TestRuleMissingFieldStrict(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Strict: true, Rules: []Rule{
		{When: `message.fileName != "report.pdf"`, Emit: EmitList{"files"}},
		{When: `eventType == "message"`, Emit: EmitList{"inbox"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "inbox" {
		t.Fatalf("expected strict mode to fail the first rule, got %v", matches)
	}
}

// TestRuleMultipleTopicsAndDrivers tests fan-out to several topics with a driver restriction.
func TestRuleMultipleTopicsAndDrivers(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `eventType == "message"`, Emit: EmitList{"inbox", "audit"}, Drivers: []string{"kafka", "sql"}},
	}}, textMessageEvent())

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", matches)
	}
	if matches[0].Topic != "inbox" || matches[1].Topic != "audit" {
		t.Fatalf("expected rule-order topics, got %v", matches)
	}
	for _, match := range matches {
		if len(match.Drivers) != 2 || match.Drivers[0] != "kafka" {
			t.Fatalf("expected drivers carried on every match, got %v", match)
		}
	}
}

// TestRuleContainsFunction tests the contains() helper on strings.
func TestRuleContainsFunction(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `contains(message.text, "order")`, Emit: EmitList{"orders"}},
		{When: `contains(message.text, "refund")`, Emit: EmitList{"refunds"}},
	}}, textMessageEvent())

	if len(matches) != 1 || matches[0].Topic != "orders" {
		t.Fatalf("expected orders only, got %v", matches)
	}
}

// TestRuleLikeFunction tests the like() helper with SQL-style wildcards.
func TestRuleLikeFunction(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `like(message.text, "order%")`, Emit: EmitList{"orders"}},
		{When: `like(message.text, "%please")`, Emit: EmitList{"polite"}},
		{When: `like(message.text, "refund%")`, Emit: EmitList{"refunds"}},
	}}, textMessageEvent())

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", matches)
	}
	if matches[0].Topic != "orders" || matches[1].Topic != "polite" {
		t.Fatalf("unexpected topics: %v", matches)
	}
}

// TestRuleStringLiteralWithDots tests that dotted text inside string literals is not rewritten.
func TestRuleStringLiteralWithDots(t *testing.T) {
	matches := evaluateRules(t, RulesConfig{Rules: []Rule{
		{When: `message.text == "order #42 please" && eventType != "a.b.c"`, Emit: EmitList{"inbox"}},
	}}, textMessageEvent())

	if len(matches) != 1 {
		t.Fatalf("expected match, got %v", matches)
	}
}

// TestRuleCompilesAllReferenceForms tests that every reference form survives
// the rewrite and compiles: the synthetic parameter names must be legal
// govaluate identifiers.
func TestRuleCompilesAllReferenceForms(t *testing.T) {
	expressions := []string{
		`eventType == "message"`,
		`message.type == "text"`,
		`joined.members[0].userId == "U2"`,
		`$.message.type == "text"`,
		`contains(message.text, "order") || like($.message.text, "%please")`,
	}
	for _, when := range expressions {
		if _, err := NewRuleEngine(RulesConfig{Rules: []Rule{{When: when, Emit: EmitList{"t"}}}}); err != nil {
			t.Fatalf("expression %q failed to compile: %v", when, err)
		}
	}
}

// TestRuleInvalidExpression tests that a malformed expression fails engine construction.
func TestRuleInvalidExpression(t *testing.T) {
	_, err := NewRuleEngine(RulesConfig{Rules: []Rule{
		{When: `eventType ==`, Emit: EmitList{"inbox"}},
	}})
	if err == nil {
		t.Fatalf("expected compile error")
	}
}

// TestRuleEngineLen tests Len on nil and populated engines.
func TestRuleEngineLen(t *testing.T) {
	var empty *RuleEngine
	if empty.Len() != 0 {
		t.Fatalf("nil engine should have length 0")
	}
	engine, err := NewRuleEngine(RulesConfig{Rules: []Rule{{When: `true`, Emit: EmitList{"t"}}}})
	if err != nil {
		t.Fatalf("NewRuleEngine: %v", err)
	}
	if engine.Len() != 1 {
		t.Fatalf("expected length 1, got %d", engine.Len())
	}
}
