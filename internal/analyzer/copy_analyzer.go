package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// securityClaimPatterns capture marketing language making verifiable (or
// unverifiable) assertions about security posture.
var securityClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bank[- ]level (?:encryption|security)`),
	regexp.MustCompile(`(?i)military[- ]grade (?:encryption|security)`),
	regexp.MustCompile(`(?i)end[- ]to[- ]end encrypt\w*`),
	regexp.MustCompile(`(?i)256[- ]bit (?:aes |ssl )?encrypt\w*`),
	regexp.MustCompile(`(?i)your data is (?:always )?(?:safe|secure|encrypted)`),
	regexp.MustCompile(`(?i)soc ?2(?: type (?:i{1,2}|1|2))? (?:certified|compliant|audited)`),
	regexp.MustCompile(`(?i)iso ?27001 (?:certified|compliant)`),
	regexp.MustCompile(`(?i)gdpr[- ](?:compliant|ready)`),
	regexp.MustCompile(`(?i)hipaa[- ]compliant`),
	regexp.MustCompile(`(?i)pci[- ]dss (?:compliant|certified)`),
	regexp.MustCompile(`(?i)we (?:never|don't|do not) (?:sell|share) your (?:data|information)`),
}

var placeholderCopy = []string{
	"lorem ipsum",
	"your text here",
	"coming soon",
	"under construction",
	"[insert",
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+\s`)
var wordRe = regexp.MustCompile(`[A-Za-z']+`)

// CopyAnalyzer reviews the landing page's visible text: volume,
// readability and the security promises it makes. The extracted claims feed
// the deep security analyzer's verification pass.
type CopyAnalyzer struct {
	logger logging.Logger
}

func NewCopyAnalyzer(logger logging.Logger) *CopyAnalyzer {
	return &CopyAnalyzer{logger: logger.With(logging.Field{Key: "component", Value: "copy-analyzer"})}
}

// Analyze never fails; unparseable markup yields an empty report with a
// neutral score.
func (c *CopyAnalyzer) Analyze(ctx context.Context, crawl *model.CrawlResult) *model.CopyReport {
	report := &model.CopyReport{Score: 50}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("copy analysis panicked, returning partial result",
				logging.Field{Key: "panic", Value: r})
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(crawl.HTML))
	if err != nil {
		c.logger.Warn("copy analysis skipped, unparseable markup",
			logging.Field{Key: "error", Value: err.Error()})
		return report
	}

	text := visibleText(doc)
	words := wordRe.FindAllString(text, -1)
	report.WordCount = len(words)
	report.ReadingEase = fleschReadingEase(text, words)
	report.SecurityClaims = extractClaims(text, crawl.FinalURL)
	report.Issues = copyIssues(text, report.WordCount)
	report.Score = copyScore(report)

	c.logger.Info("copy analysis finished",
		logging.Field{Key: "words", Value: report.WordCount},
		logging.Field{Key: "claims", Value: len(report.SecurityClaims)})
	return report
}

// visibleText drops script/style/noscript content before flattening.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, svg").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func extractClaims(text, source string) []model.SecurityClaim {
	var claims []model.SecurityClaim
	seen := map[string]bool{}
	for _, re := range securityClaimPatterns {
		for _, match := range re.FindAllString(text, 3) {
			key := strings.ToLower(match)
			if seen[key] {
				continue
			}
			seen[key] = true
			claims = append(claims, model.SecurityClaim{Claim: match, Source: source})
		}
	}
	return claims
}

func copyIssues(text string, wordCount int) []string {
	var issues []string
	lower := strings.ToLower(text)
	for _, marker := range placeholderCopy {
		if strings.Contains(lower, marker) {
			issues = append(issues, "placeholder copy: "+marker)
		}
	}
	if wordCount < 100 {
		issues = append(issues, "thin content: fewer than 100 words of visible text")
	}
	return issues
}

func copyScore(report *model.CopyReport) int {
	score := 80
	score -= 15 * len(report.Issues)
	if report.ReadingEase < 30 && report.WordCount > 100 {
		score -= 10 // very hard to read
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// fleschReadingEase computes the standard 206.835 - 1.015*(words/sentences)
// - 84.6*(syllables/words) formula, clamped to [0,100].
func fleschReadingEase(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	sentences := len(sentenceSplitRe.FindAllString(text, -1)) + 1
	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}
	score := 206.835 - 1.015*float64(len(words))/float64(sentences) - 84.6*float64(syllables)/float64(len(words))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// countSyllables approximates by counting vowel groups, with the usual
// silent-e adjustment. Close enough for a readability band.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count, prevVowel := 0, false
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
	if count == 0 {
		count = 1
	}
	return count
}
