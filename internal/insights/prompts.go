package insights

import (
	"fmt"
	"strings"

	"litinsight/internal/enrich"
	"litinsight/internal/models"
	"litinsight/internal/util"
)

const mapSystemPrompt = `You are a biomedical research analyst. You extract precise, citable technical facts from scientific articles. Never invent numbers and never cite an article tag that was not given to you.`

const reduceSystemPrompt = `You are a senior biomedical research analyst writing evidence syntheses for clinicians and researchers. Every claim must carry the [#N] citation tags of the articles that support it.`

const mapInstructions = `Extract the key technical findings from the articles above.
- One bullet per finding, each starting with the citation tag of its article, e.g. "[#3] ...".
- Prefer quantitative results: effect sizes, response rates, hazard ratios, p-values, confidence intervals.
- Record trial design (phase, randomization, arms) and sample size when stated.
- Use the full-text excerpts where they add detail beyond the abstract.
- Skip articles with no relevant evidence rather than padding.`

const questionReduceTemplate = `Research question: %s

Below are extracted highlights from %d batches of articles. Each bullet carries the [#N] tag of its source article.

%s

Write a structured answer in Markdown with exactly these sections:
## Answer
A direct answer to the research question in 2-4 sentences.
## Key Evidence
The strongest supporting and conflicting findings, with numbers.
## Treatment/Decision Implications
What the evidence means for treatment choice or study design.
## Limitations/Gaps
Weaknesses of the evidence base and open questions.

Cite every relevant [#N] tag. Do not cite tags that do not appear in the highlights.`

const surveyReduceTemplate = `Below are extracted highlights from %d batches of articles. Each bullet carries the [#N] tag of its source article.

%s

Write a structured literature survey in Markdown with exactly these sections:
## Key Findings & Comparative Efficacy
## Therapeutic Landscape
## Molecular/Biomarker Profiles
## Critical Gaps & Evidence Strength

Cite every [#N] tag you draw on. Do not cite tags that do not appear in the highlights.`

// BuildMapPrompt renders one batch. Article tags start at offset+1 so they
// stay unique across the whole job.
func BuildMapPrompt(batch []models.Article, enrichment enrich.Enrichment, offset, maxExcerptChars int) (string, []int) {
	var b strings.Builder
	fmt.Fprintf(&b, "ARTICLES (%d):\n\n", len(batch))
	for i, a := range batch {
		n := offset + i + 1
		fmt.Fprintf(&b, "[#%d] Title: %s\n", n, oneLine(a.Title))
		fmt.Fprintf(&b, "Year: %s\n", util.YearOf(a.PubDate))
		if len(a.Mutations) > 0 {
			fmt.Fprintf(&b, "Mutations: %s\n", strings.Join(a.Mutations, ", "))
		}
		if len(a.Diseases) > 0 {
			fmt.Fprintf(&b, "Diseases: %s\n", strings.Join(a.Diseases, ", "))
		}
		abstract := util.SanitizeText(a.Abstract)
		if abstract == "" {
			abstract = "(no abstract)"
		}
		fmt.Fprintf(&b, "Abstract: %s\n\n", abstract)
	}

	fullText := make([]int, 0, len(batch))
	var excerpts strings.Builder
	for i, a := range batch {
		text, ok := enrichment.Excerpt(a.SourceID)
		if !ok || text == "" {
			continue
		}
		n := offset + i + 1
		fullText = append(fullText, n)
		fmt.Fprintf(&excerpts, "[#%d]\n%s\n\n", n, util.TruncateRunes(text, maxExcerptChars))
	}
	if len(fullText) > 0 {
		b.WriteString("FULL-TEXT EXCERPTS:\n\n")
		b.WriteString(excerpts.String())
	}
	b.WriteString(mapInstructions)
	return b.String(), fullText
}

func BuildEvidence(highlights []string) string {
	parts := make([]string, 0, len(highlights))
	for i, h := range highlights {
		parts = append(parts, fmt.Sprintf("=== Batch %d ===\n%s", i+1, strings.TrimSpace(h)))
	}
	return strings.Join(parts, "\n\n")
}

// BuildReducePrompt picks question mode when query is non-empty and survey
// mode otherwise.
func BuildReducePrompt(highlights []string, query string) string {
	evidence := BuildEvidence(highlights)
	query = strings.TrimSpace(query)
	if query != "" {
		return fmt.Sprintf(questionReduceTemplate, query, len(highlights), evidence)
	}
	return fmt.Sprintf(surveyReduceTemplate, len(highlights), evidence)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(util.SanitizeText(s)), " ")
}
