// Package analysis holds the deterministic page-signal analyzers. Every
// analyzer is a pure, synchronous function over an immutable input and is
// safe to call concurrently without coordination.
package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sitepulse/sitepulse/internal/domain"
)

// ContentInput is the textual slice of a snapshot the content analyzer
// operates on. MetaDescription, H1, Subheadings and PrimaryKeyword are
// optional; an empty PrimaryKeyword derives one from the H1 or title.
type ContentInput struct {
	Title           string
	Headings        []string
	MainText        string
	MetaDescription string
	H1              string
	Subheadings     []string
	PrimaryKeyword  string
}

// KeywordPlacement records where the primary keyword appears.
type KeywordPlacement struct {
	InH1              bool `json:"in_h1"`
	InFirst100Words   bool `json:"in_first_100_words"`
	InMetaDescription bool `json:"in_meta_description"`
	SubheadingMatches int  `json:"subheading_matches"`
}

// StructureRisk aggregates wall-of-text and sentence-complexity signals.
type StructureRisk struct {
	ParagraphCount    int     `json:"paragraph_count"`
	LongParagraphs    int     `json:"long_paragraphs"`
	WallOfTextCount   int     `json:"wall_of_text_count"`
	PassiveRatio      float64 `json:"passive_ratio"`
	LongSentenceRatio float64 `json:"long_sentence_ratio"`
	ComplexRatio      float64 `json:"complex_ratio"`
}

// IntentAlignment compares the declared intent of the title against the body.
type IntentAlignment struct {
	TitleIntent string `json:"title_intent"`
	BodyIntent  string `json:"body_intent"`
	Score       int    `json:"score"`
}

// SEOContentAnalysis is the full output of the content analyzer.
type SEOContentAnalysis struct {
	Readability      int              `json:"readability"`
	PrimaryKeyword   string           `json:"primary_keyword"`
	KeywordDensity   float64          `json:"keyword_density"`
	Placement        KeywordPlacement `json:"placement"`
	StuffingRisk     domain.RiskLevel `json:"stuffing_risk"`
	Structure        StructureRisk    `json:"structure"`
	SemanticCoverage int              `json:"semantic_coverage"`
	Intent           IntentAlignment  `json:"intent"`

	Findings []domain.Finding `json:"findings,omitempty"`
}

const (
	longParagraphWords = 150
	wallOfTextWords    = 220
	longSentenceWords  = 25
	complexSentence    = 20

	densityHighPct   = 2.6
	densityMediumPct = 1.8
	densityFloorPct  = 0.8
	densityCeilPct   = 1.5
)

var (
	wordPattern      = regexp.MustCompile(`[a-z0-9]+`)
	sentenceSplit    = regexp.MustCompile(`[.!?]+\s+`)
	passivePattern   = regexp.MustCompile(`\b(am|is|are|was|were|be|been|being)\s+\w+ed\b`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n`)
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "get": true,
	"has": true, "have": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "our": true, "that": true, "the": true,
	"their": true, "this": true, "to": true, "was": true, "we": true,
	"were": true, "will": true, "with": true, "you": true, "your": true,
}

// Domain-term lexicon for semantic coverage. The first family whose trigger
// appears in the keyword wins; the keyword's own tokens serve as fallback.
var semanticLexicon = []struct {
	triggers []string
	terms    []string
}{
	{
		triggers: []string{"book", "booking", "reserve", "reservation", "appointment", "schedule"},
		terms:    []string{"availability", "calendar", "confirm", "date", "time", "slot", "cancel", "reschedule"},
	},
	{
		triggers: []string{"software", "app", "platform", "tool", "saas", "api"},
		terms:    []string{"features", "integration", "pricing", "trial", "demo", "support", "security", "dashboard"},
	},
	{
		triggers: []string{"shop", "store", "buy", "ecommerce", "product", "cart"},
		terms:    []string{"shipping", "checkout", "returns", "price", "stock", "delivery", "payment", "reviews"},
	},
	{
		triggers: []string{"seo", "search", "ranking", "traffic", "marketing"},
		terms:    []string{"keywords", "backlinks", "content", "audit", "optimize", "serp", "crawl", "index"},
	},
}

var intentPatterns = map[string][]string{
	"transactional": {"buy", "price", "pricing", "order", "book", "demo", "trial", "start", "signup", "sign", "subscribe", "download", "quote"},
	"informational": {"how", "what", "why", "guide", "learn", "tips", "tutorial", "explained", "understanding", "best"},
	"navigational":  {"login", "contact", "about", "dashboard", "account", "support", "home"},
}

// AnalyzeContent computes readability, keyword placement and structural risk
// for a page's text.
func AnalyzeContent(in ContentInput) SEOContentAnalysis {
	body := in.MainText
	words := tokenize(body)
	sentences := splitSentences(body)

	out := SEOContentAnalysis{
		Readability:    fleschReadingEase(words, sentences),
		PrimaryKeyword: primaryKeyword(in),
	}

	out.KeywordDensity = keywordDensity(out.PrimaryKeyword, words)
	out.Placement = keywordPlacement(out.PrimaryKeyword, in, words)
	out.StuffingRisk = stuffingRisk(out.KeywordDensity, words)
	out.Structure = structureRisk(body, sentences)
	out.SemanticCoverage = semanticCoverage(out.PrimaryKeyword, body)
	out.Intent = intentAlignment(in.Title, body)
	out.Findings = contentFindings(out, in)

	return out
}

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(strings.TrimSpace(text), -1)
	sentences := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// countSyllables uses a vowel-group heuristic. Words of three letters or
// fewer always count one syllable.
func countSyllables(word string) int {
	if len(word) <= 3 {
		return 1
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func fleschReadingEase(words, sentences []string) int {
	if len(words) == 0 || len(sentences) == 0 {
		return 0
	}
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	score := 206.835 -
		1.015*(float64(len(words))/float64(len(sentences))) -
		84.6*(float64(syllables)/float64(len(words)))
	return domain.ClampScore(int(math.Round(score)))
}

// primaryKeyword returns the explicit override, or the first one to four
// significant words of the H1 (falling back to the title), lowercased.
func primaryKeyword(in ContentInput) string {
	if in.PrimaryKeyword != "" {
		return strings.ToLower(strings.TrimSpace(in.PrimaryKeyword))
	}
	source := in.H1
	if source == "" {
		source = in.Title
	}
	var significant []string
	for _, w := range tokenize(source) {
		if stopwords[w] {
			continue
		}
		significant = append(significant, w)
		if len(significant) == 4 {
			break
		}
	}
	return strings.Join(significant, " ")
}

func keywordDensity(keyword string, words []string) float64 {
	if keyword == "" || len(words) == 0 {
		return 0
	}
	occurrences := countPhrase(tokenize(keyword), words)
	density := float64(occurrences) / float64(len(words)) * 100
	return math.Round(density*100) / 100
}

// countPhrase counts occurrences of a token sequence inside a word stream.
func countPhrase(phrase, words []string) int {
	if len(phrase) == 0 || len(words) < len(phrase) {
		return 0
	}
	count := 0
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

func keywordPlacement(keyword string, in ContentInput, words []string) KeywordPlacement {
	if keyword == "" {
		return KeywordPlacement{}
	}
	phrase := tokenize(keyword)
	first := words
	if len(first) > 100 {
		first = first[:100]
	}
	p := KeywordPlacement{
		InH1:              countPhrase(phrase, tokenize(in.H1)) > 0,
		InFirst100Words:   countPhrase(phrase, first) > 0,
		InMetaDescription: countPhrase(phrase, tokenize(in.MetaDescription)) > 0,
	}
	for _, sub := range in.Subheadings {
		if countPhrase(phrase, tokenize(sub)) > 0 {
			p.SubheadingMatches++
		}
	}
	return p
}

// stuffingRisk flags keyword stuffing from density and repeated three-word
// phrases. Phrases containing stopwords are ignored; a phrase counts as
// repeated once it appears three times.
func stuffingRisk(density float64, words []string) domain.RiskLevel {
	repeats := repeatedTrigrams(words)
	switch {
	case density > densityHighPct || repeats >= 4:
		return domain.RiskHigh
	case density > densityMediumPct || repeats >= 2:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func repeatedTrigrams(words []string) int {
	counts := make(map[string]int)
	for i := 0; i+3 <= len(words); i++ {
		if stopwords[words[i]] || stopwords[words[i+1]] || stopwords[words[i+2]] {
			continue
		}
		counts[words[i]+" "+words[i+1]+" "+words[i+2]]++
	}
	repeated := 0
	for _, c := range counts {
		if c >= 3 {
			repeated++
		}
	}
	return repeated
}

func structureRisk(body string, sentences []string) StructureRisk {
	paragraphs := splitParagraphs(body, sentences)

	risk := StructureRisk{ParagraphCount: len(paragraphs)}
	for _, p := range paragraphs {
		n := len(tokenize(p))
		if n > wallOfTextWords {
			risk.WallOfTextCount++
		} else if n > longParagraphWords {
			risk.LongParagraphs++
		}
	}

	if len(sentences) > 0 {
		passive, long, complex := 0, 0, 0
		for _, s := range sentences {
			if passivePattern.MatchString(strings.ToLower(s)) {
				passive++
			}
			n := len(tokenize(s))
			if n > longSentenceWords {
				long++
			}
			if n > complexSentence {
				complex++
			}
		}
		total := float64(len(sentences))
		risk.PassiveRatio = float64(passive) / total
		risk.LongSentenceRatio = float64(long) / total
		risk.ComplexRatio = float64(complex) / total
	}

	return risk
}

// splitParagraphs splits on blank lines; bodies without blank lines are
// chunked into pseudo-paragraphs of six sentences so wall-of-text detection
// still has something to measure.
func splitParagraphs(body string, sentences []string) []string {
	if blankLinePattern.MatchString(body) {
		var paragraphs []string
		for _, p := range blankLinePattern.Split(body, -1) {
			if strings.TrimSpace(p) != "" {
				paragraphs = append(paragraphs, p)
			}
		}
		return paragraphs
	}
	const chunk = 6
	var paragraphs []string
	for i := 0; i < len(sentences); i += chunk {
		end := i + chunk
		if end > len(sentences) {
			end = len(sentences)
		}
		paragraphs = append(paragraphs, strings.Join(sentences[i:end], ". "))
	}
	return paragraphs
}

func semanticCoverage(keyword, body string) int {
	if keyword == "" {
		return 0
	}
	lowerBody := strings.ToLower(body)
	for _, family := range semanticLexicon {
		if !containsAny(keyword, family.triggers) {
			continue
		}
		found := 0
		for _, term := range family.terms {
			if strings.Contains(lowerBody, term) {
				found++
			}
		}
		return int(math.Round(float64(found) / float64(len(family.terms)) * 100))
	}
	// No lexicon family matched; fall back to the keyword's own tokens.
	tokens := tokenize(keyword)
	if len(tokens) == 0 {
		return 0
	}
	found := 0
	for _, tok := range tokens {
		if strings.Contains(lowerBody, tok) {
			found++
		}
	}
	return int(math.Round(float64(found) / float64(len(tokens)) * 100))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func classifyIntent(text string) string {
	words := tokenize(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	matched := ""
	matches := 0
	for intent, patterns := range intentPatterns {
		for _, p := range patterns {
			if set[p] {
				if matched != "" && matched != intent {
					return "mixed"
				}
				matched = intent
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return "mixed"
	}
	return matched
}

func intentAlignment(title, body string) IntentAlignment {
	a := IntentAlignment{
		TitleIntent: classifyIntent(title),
		BodyIntent:  classifyIntent(body),
	}
	switch {
	case a.TitleIntent == a.BodyIntent:
		a.Score = 90
	case a.TitleIntent == "mixed" || a.BodyIntent == "mixed":
		a.Score = 75
	default:
		a.Score = 45
	}
	return a
}

func contentFindings(out SEOContentAnalysis, in ContentInput) []domain.Finding {
	var findings []domain.Finding

	if out.PrimaryKeyword != "" && (out.KeywordDensity < densityFloorPct || out.KeywordDensity > densityCeilPct) {
		findings = append(findings, domain.Finding{
			Title:    "Keyword density outside target range",
			Why:      fmt.Sprintf("Density of %.2f%% for %q is outside the 0.8-1.5%% range search engines reward.", out.KeywordDensity, out.PrimaryKeyword),
			Evidence: fmt.Sprintf("density=%.2f%%", out.KeywordDensity),
			Severity: domain.SeverityMedium,
		})
	}
	if out.PrimaryKeyword != "" && in.MetaDescription != "" && !out.Placement.InMetaDescription {
		findings = append(findings, domain.Finding{
			Title:    "Meta description missing primary keyword",
			Why:      fmt.Sprintf("The meta description never mentions %q, weakening its relevance signal.", out.PrimaryKeyword),
			Evidence: truncate(in.MetaDescription, 140),
			Severity: domain.SeverityLow,
		})
	}
	if out.Structure.LongSentenceRatio > 0.25 {
		findings = append(findings, domain.Finding{
			Title:    "Too many long sentences",
			Why:      fmt.Sprintf("%.0f%% of sentences exceed %d words, hurting scannability.", out.Structure.LongSentenceRatio*100, longSentenceWords),
			Evidence: fmt.Sprintf("long_sentence_ratio=%.2f", out.Structure.LongSentenceRatio),
			Severity: domain.SeverityMedium,
		})
	}
	if out.Structure.PassiveRatio > 0.10 {
		findings = append(findings, domain.Finding{
			Title:    "Heavy passive voice",
			Why:      fmt.Sprintf("%.0f%% of sentences use passive constructions, which read slower than active copy.", out.Structure.PassiveRatio*100),
			Evidence: fmt.Sprintf("passive_ratio=%.2f", out.Structure.PassiveRatio),
			Severity: domain.SeverityLow,
		})
	}
	if out.Structure.LongParagraphs > 0 || out.Structure.WallOfTextCount > 0 {
		findings = append(findings, domain.Finding{
			Title:    "Walls of text detected",
			Why:      "Paragraphs over 150 words discourage reading; break them into shorter blocks with subheadings.",
			Evidence: fmt.Sprintf("long_paragraphs=%d wall_of_text=%d", out.Structure.LongParagraphs, out.Structure.WallOfTextCount),
			Severity: domain.SeverityMedium,
		})
	}
	if out.PrimaryKeyword != "" && out.SemanticCoverage < 40 {
		findings = append(findings, domain.Finding{
			Title:    "Thin semantic coverage",
			Why:      fmt.Sprintf("Only %d%% of terms related to %q appear in the body text.", out.SemanticCoverage, out.PrimaryKeyword),
			Evidence: fmt.Sprintf("semantic_coverage=%d", out.SemanticCoverage),
			Severity: domain.SeverityLow,
		})
	}
	if out.Intent.Score <= 45 {
		findings = append(findings, domain.Finding{
			Title:    "Title and body intent mismatch",
			Why:      fmt.Sprintf("The title reads as %s while the body reads as %s; visitors arriving for one will not find the other.", out.Intent.TitleIntent, out.Intent.BodyIntent),
			Evidence: truncate(in.Title, 140),
			Severity: domain.SeverityMedium,
		})
	}

	return findings
}

// truncate caps s at n runes. Counting runes rather than bytes keeps the cut
// off a multi-byte sequence when quoting page text.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
