package match

import "sort"

// skillVocabulary is the fixed set of technical skill terms recognized by the
// engine. Entries are normalized (lowercase, no punctuation); multi-word
// entries are matched against adjacent token bigrams.
var skillVocabulary = map[string]bool{
	"python":     true,
	"java":       true,
	"javascript": true,
	"typescript": true,
	"go":         true,
	"golang":     true,
	"react":      true,
	"node":       true,
	"django":     true,
	"flask":      true,
	"sql":        true,
	"postgresql": true,
	"nosql":      true,
	"docker":     true,
	"kubernetes": true,
	"terraform":  true,
	"aws":        true,
	"azure":      true,
	"gcp":        true,
	"git":        true,
	"linux":      true,
	"agile":      true,
	"scrum":      true,
	"ml":         true,
	"ai":         true,
	"devops":     true,
	"cloud":      true,
	"frontend":   true,
	"backend":    true,
	"fullstack":  true,
	"testing":    true,
	"graphql":    true,
	"rest":       true,
	"kafka":      true,
	"redis":      true,

	// bigrams (post-normalization form: punctuation stripped)
	"data science":     true,
	"machine learning": true,
	"deep learning":    true,
	"data engineering": true,
	"ci cd":            true,
}

// ExtractSkills returns the set of vocabulary skills present in the text,
// matching single tokens and adjacent bigrams of the normalized form.
func ExtractSkills(text string) map[string]bool {
	tokens := Tokenize(text)
	found := make(map[string]bool)
	for i, tok := range tokens {
		if skillVocabulary[tok] {
			found[tok] = true
		}
		if i < len(tokens)-1 {
			bigram := tok + " " + tokens[i+1]
			if skillVocabulary[bigram] {
				found[bigram] = true
			}
		}
	}
	return found
}

// intersectSkills returns the sorted intersection of two skill sets.
func intersectSkills(a, b map[string]bool) []string {
	var common []string
	for skill := range a {
		if b[skill] {
			common = append(common, skill)
		}
	}
	sort.Strings(common)
	return common
}

// skillScore combines coverage (fraction of job skills the resume has) and
// relevance (fraction of resume skills the job asks for). Coverage dominates:
// satisfying what the job requires matters more than sheer breadth.
func skillScore(resumeSkills, jobSkills map[string]bool, w Weights) (float64, []string) {
	common := intersectSkills(resumeSkills, jobSkills)

	// Floor denominators at 1 to guard empty skill sets.
	coverage := float64(len(common)) / float64(max(len(jobSkills), 1))
	relevance := float64(len(common)) / float64(max(len(resumeSkills), 1))

	return w.SkillCoverage*coverage + w.SkillRelevance*relevance, common
}
