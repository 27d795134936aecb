package signals

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/alertalink/linkguard/internal/domain"
)

// compiledRule is a custom rule with its CEL program compiled at load time,
// so per-URL evaluation never parses expressions.
type compiledRule struct {
	rule    domain.CustomRule
	program cel.Program
}

// newRuleEnv declares the CEL variables custom rules may reference. The
// names mirror the feature set fields.
func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("host", cel.StringType),
		cel.Variable("registrable_domain", cel.StringType),
		cel.Variable("tld", cel.StringType),
		cel.Variable("url_length", cel.IntType),
		cel.Variable("domain_length", cel.IntType),
		cel.Variable("path_length", cel.IntType),
		cel.Variable("num_digits", cel.IntType),
		cel.Variable("num_hyphens", cel.IntType),
		cel.Variable("num_dots", cel.IntType),
		cel.Variable("num_subdomains", cel.IntType),
		cel.Variable("num_params", cel.IntType),
		cel.Variable("special_chars", cel.IntType),
		cel.Variable("digit_ratio", cel.DoubleType),
		cel.Variable("url_entropy", cel.DoubleType),
		cel.Variable("domain_entropy", cel.DoubleType),
		cel.Variable("has_https", cel.BoolType),
		cel.Variable("has_port", cel.BoolType),
		cel.Variable("has_at_symbol", cel.BoolType),
		cel.Variable("ip_as_host", cel.BoolType),
		cel.Variable("has_punycode", cel.BoolType),
		cel.Variable("excessive_subdomains", cel.BoolType),
		cel.Variable("risky_tld", cel.BoolType),
		cel.Variable("is_shortener", cel.BoolType),
		cel.Variable("is_paste_service", cel.BoolType),
		cel.Variable("is_hosting_platform", cel.BoolType),
		cel.Variable("brand_impersonation", cel.BoolType),
		cel.Variable("trusted_locally", cel.BoolType),
		cel.Variable("suspicious_word_count", cel.IntType),
	)
}

// LoadCustomRules compiles the enabled rules and replaces any previously
// loaded set. A rule that fails to compile rejects the whole load, so a bad
// config never partially applies.
func (g *Generator) LoadCustomRules(rules []domain.CustomRule) error {
	env, err := newRuleEnv()
	if err != nil {
		return fmt.Errorf("failed to create rule environment: %w", err)
	}

	compiled := make([]*compiledRule, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("failed to compile rule %s: %w", r.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return fmt.Errorf("rule %s must evaluate to bool, got %s", r.ID, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return fmt.Errorf("failed to build program for rule %s: %w", r.ID, err)
		}
		compiled = append(compiled, &compiledRule{rule: r, program: prg})
	}

	g.custom = compiled
	return nil
}

func (r *compiledRule) eval(f *domain.FeatureSet) (domain.Signal, bool, error) {
	out, _, err := r.program.Eval(ruleActivation(f))
	if err != nil {
		return domain.Signal{}, false, fmt.Errorf("rule %s evaluation failed: %w", r.rule.ID, err)
	}
	fired, ok := out.(types.Bool)
	if !ok || !bool(fired) {
		return domain.Signal{}, false, nil
	}
	return domain.Signal{
		ID:          r.rule.ID,
		Severity:    r.rule.Severity,
		Weight:      r.rule.Weight,
		Evidence:    map[string]any{"rule": string(r.rule.ID)},
		Explanation: fmt.Sprintf("Custom rule %s matched", r.rule.ID),
	}, true, nil
}

func ruleActivation(f *domain.FeatureSet) map[string]any {
	return map[string]any{
		"host":                  f.Host,
		"registrable_domain":    f.RegistrableDomain,
		"tld":                   f.TLD,
		"url_length":            f.URLLength,
		"domain_length":         f.DomainLength,
		"path_length":           f.PathLength,
		"num_digits":            f.NumDigits,
		"num_hyphens":           f.NumHyphens,
		"num_dots":              f.NumDots,
		"num_subdomains":        f.NumSubdomains,
		"num_params":            f.NumParams,
		"special_chars":         f.SpecialChars,
		"digit_ratio":           f.DigitRatio,
		"url_entropy":           f.URLEntropy,
		"domain_entropy":        f.DomainEntropy,
		"has_https":             f.HasHTTPS,
		"has_port":              f.HasPort,
		"has_at_symbol":         f.HasAtSymbol,
		"ip_as_host":            f.IPAsHost,
		"has_punycode":          f.HasPunycode,
		"excessive_subdomains":  f.ExcessiveSubdomains,
		"risky_tld":             f.RiskyTLD,
		"is_shortener":          f.IsShortener(),
		"is_paste_service":      f.IsPasteService(),
		"is_hosting_platform":   f.IsHostingPlatform(),
		"brand_impersonation":   f.BrandImpersonation,
		"trusted_locally":       f.TrustedLocally,
		"suspicious_word_count": f.SuspiciousWordCount,
	}
}
