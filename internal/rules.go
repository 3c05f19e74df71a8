package internal

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/PaesslerAG/jsonpath"
)

// Rule routes records matching a when-expression to one or more topics.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    EmitList `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// EmitList is a list of topics that accepts either a single YAML scalar or a
// sequence.
type EmitList []string

func (e *EmitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = EmitList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = EmitList(many)
	return nil
}

// RuleMatch is one topic a rule decided to emit to, with optional driver
// restriction.
type RuleMatch struct {
	Topic   string
	Drivers []string
}

type compiledRule struct {
	emit    EmitList
	drivers []string
	expr    *govaluate.EvaluableExpression
	// paths maps synthetic parameter names to the JSONPath expressions they
	// stand in for.
	paths map[string]string
	// flatRefs maps synthetic parameter names to dotted/indexed keys looked
	// up in the flattened record.
	flatRefs map[string]string
}

// RuleEngine evaluates routing rules against normalized records.
//
// When-expressions are govaluate expressions. Record fields can be referenced
// three ways: flat names ("eventType"), dotted or indexed paths
// ("message.type", "joined.members[0].userId") resolved against the flattened
// record, and JSONPath expressions ("$.message.type") resolved against the
// raw record. In strict mode a missing field fails the rule; otherwise it
// evaluates as nil.
type RuleEngine struct {
	rules  []compiledRule
	strict bool
	logger *log.Logger
}

// Len returns the number of compiled rules.
func (r *RuleEngine) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	rules := make([]compiledRule, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		rewritten, paths, flatRefs := rewriteExpression(rule.When)
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(rewritten, exprFunctions)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, compiledRule{
			emit:     rule.Emit,
			drivers:  rule.Drivers,
			expr:     expr,
			paths:    paths,
			flatRefs: flatRefs,
		})
	}

	return &RuleEngine{rules: rules, strict: cfg.Strict, logger: logger}, nil
}

// Evaluate runs every rule against the event and returns the matched topics
// in rule order. A rule that fails to evaluate never matches.
func (r *RuleEngine) Evaluate(event Event) []RuleMatch {
	if len(r.rules) == 0 {
		return nil
	}

	flat, raw := event.parameterViews()

	matches := make([]RuleMatch, 0, 1)
	for _, rule := range r.rules {
		params := ruleParameters{flat: flat, strict: r.strict}
		if len(rule.paths) > 0 || len(rule.flatRefs) > 0 {
			params.resolved = make(map[string]interface{}, len(rule.paths)+len(rule.flatRefs))
			for name, path := range rule.paths {
				value, err := jsonpath.Get(path, raw)
				if err != nil {
					if r.strict {
						params.missing = append(params.missing, name)
						continue
					}
					value = nil
				}
				params.resolved[name] = value
			}
			for name, key := range rule.flatRefs {
				value, ok := flat[key]
				if !ok {
					if r.strict {
						params.missing = append(params.missing, name)
						continue
					}
					value = nil
				}
				params.resolved[name] = value
			}
		}

		result, err := rule.expr.Eval(params)
		if err != nil {
			r.logger.Printf("rule eval failed: %v", err)
			continue
		}
		ok, _ := result.(bool)
		if !ok {
			continue
		}
		for _, topic := range rule.emit {
			matches = append(matches, RuleMatch{Topic: topic, Drivers: rule.drivers})
		}
	}
	return matches
}

// parameterViews returns the flattened parameter map and the raw object used
// for JSONPath resolution, deriving both from RawPayload when unset.
func (e Event) parameterViews() (map[string]interface{}, interface{}) {
	flat := e.Data
	raw := e.RawObject

	if raw == nil && len(e.RawPayload) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(e.RawPayload, &decoded); err == nil {
			raw = decoded
		}
	}
	if flat == nil {
		if asMap, ok := raw.(map[string]interface{}); ok {
			flat = Flatten(asMap)
		} else {
			flat = map[string]interface{}{}
		}
	}
	return flat, raw
}

type ruleParameters struct {
	flat     map[string]interface{}
	resolved map[string]interface{}
	missing  []string
	strict   bool
}

func (p ruleParameters) Get(name string) (interface{}, error) {
	for _, m := range p.missing {
		if m == name {
			return nil, fmt.Errorf("no value for %q", name)
		}
	}
	if value, ok := p.resolved[name]; ok {
		return value, nil
	}
	if value, ok := p.flat[name]; ok {
		return value, nil
	}
	if p.strict {
		return nil, fmt.Errorf("no value for %q", name)
	}
	return nil, nil
}

var (
	jsonPathToken = regexp.MustCompile(`\$[.\[][A-Za-z0-9_.\[\]]*`)
	dottedToken   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*|\[[0-9]+\])+`)
)

// rewriteExpression replaces JSONPath tokens and dotted/indexed references
// with synthetic parameter names so govaluate sees each as a single
// parameter. The names must be plain identifiers; govaluate's lexer rejects
// leading underscores. Quoted string literals pass through untouched.
func rewriteExpression(expr string) (string, map[string]string, map[string]string) {
	paths := make(map[string]string)
	flatRefs := make(map[string]string)
	var out strings.Builder

	for _, segment := range splitLiterals(expr) {
		if segment.literal {
			out.WriteString(segment.text)
			continue
		}
		text := jsonPathToken.ReplaceAllStringFunc(segment.text, func(token string) string {
			name := fmt.Sprintf("jsonpathref%d", len(paths))
			paths[name] = token
			return name
		})
		text = dottedToken.ReplaceAllStringFunc(text, func(token string) string {
			name := fmt.Sprintf("fieldref%d", len(flatRefs))
			flatRefs[name] = token
			return name
		})
		out.WriteString(text)
	}
	return out.String(), paths, flatRefs
}

type exprSegment struct {
	text    string
	literal bool
}

// splitLiterals splits an expression into alternating plain and quoted
// segments so rewriting can skip string literals.
func splitLiterals(expr string) []exprSegment {
	segments := make([]exprSegment, 0, 4)
	var current strings.Builder
	var quote byte

	flush := func(literal bool) {
		if current.Len() > 0 {
			segments = append(segments, exprSegment{text: current.String(), literal: literal})
			current.Reset()
		}
	}

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote == 0 {
			if c == '"' || c == '\'' {
				flush(false)
				quote = c
			}
			current.WriteByte(c)
			continue
		}
		current.WriteByte(c)
		if c == '\\' && i+1 < len(expr) {
			i++
			current.WriteByte(expr[i])
			continue
		}
		if c == quote {
			flush(true)
			quote = 0
		}
	}
	flush(quote != 0)
	return segments
}

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("contains expects 2 arguments")
		}
		switch haystack := args[0].(type) {
		case nil:
			return false, nil
		case string:
			needle, ok := args[1].(string)
			if !ok {
				return false, nil
			}
			return strings.Contains(haystack, needle), nil
		case []interface{}:
			for _, item := range haystack {
				if item == args[1] {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, nil
		}
	},
	"like": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("like expects 2 arguments")
		}
		value, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		pattern, ok := args[1].(string)
		if !ok {
			return false, nil
		}
		escaped := regexp.QuoteMeta(pattern)
		escaped = strings.ReplaceAll(escaped, "%", ".*")
		escaped = strings.ReplaceAll(escaped, "_", ".")
		matched, err := regexp.MatchString("^"+escaped+"$", value)
		if err != nil {
			return false, nil
		}
		return matched, nil
	},
}
