package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Weights are the scoring weights for the engine's dimensions. They are
// judgment calls carried over from production tuning, not derived values;
// they must sum sensibly (semantic+skill+experience = 1, coverage+relevance
// = 1) but the engine does not enforce it.
type Weights struct {
	Semantic   float64
	Skill      float64
	Experience float64

	SkillCoverage  float64
	SkillRelevance float64

	// LocationBlend is the share of the overall score taken by the location
	// dimension when location data exists for both sides.
	LocationBlend float64
}

// DefaultWeights returns the production weighting: 40% semantic, 40% skill,
// 20% experience; skill score is 70% coverage / 30% relevance; location,
// when present, blends in at 30%.
func DefaultWeights() Weights {
	return Weights{
		Semantic:       0.4,
		Skill:          0.4,
		Experience:     0.2,
		SkillCoverage:  0.7,
		SkillRelevance: 0.3,
		LocationBlend:  0.3,
	}
}

// Result is the scored relevance of a resume against a job posting. All
// scores are on a 0-100 scale, rounded to two decimals. OverallScore is
// always the declared weighted combination of the sub-scores.
type Result struct {
	OverallScore    float64  `json:"overall_score"`
	SemanticScore   float64  `json:"semantic_score"`
	SkillScore      float64  `json:"skill_score"`
	ExperienceScore float64  `json:"experience_match"`
	LocationScore   float64  `json:"location_score"`
	MatchingSkills  []string `json:"matching_skills"`
}

// Engine computes match scores. Zero-cost to construct; safe for concurrent
// use since it holds no mutable state.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with the given weights.
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// NewDefaultEngine creates an engine with DefaultWeights.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultWeights())
}

// Score computes the multi-factor match between a resume and a job
// description. Scoring is advisory: empty input yields a zero-valued result
// rather than an error. Locations are optional; when either side is missing
// the location dimension is skipped entirely (no penalty).
func (e *Engine) Score(resumeText, jobDescription string) Result {
	return e.ScoreWithLocation(resumeText, jobDescription, "", "")
}

// ScoreWithLocation is Score plus the optional location dimension.
func (e *Engine) ScoreWithLocation(resumeText, jobDescription, resumeLocation, jobLocation string) Result {
	resume := Normalize(resumeText)
	job := Normalize(jobDescription)
	if resume == "" || job == "" {
		return Result{MatchingSkills: []string{}}
	}

	w := e.weights

	semantic := semanticSimilarity(resume, job)

	resumeSkills := ExtractSkills(resume)
	jobSkills := ExtractSkills(job)
	skill, matching := skillScore(resumeSkills, jobSkills, w)

	experience := experienceScore(resume, job)

	overall := w.Semantic*semantic + w.Skill*skill + w.Experience*experience

	location, hasLocation := locationScore(resumeLocation, jobLocation)
	if hasLocation {
		overall = (1-w.LocationBlend)*overall + w.LocationBlend*location
	}

	if matching == nil {
		matching = []string{}
	}
	return Result{
		OverallScore:    toDisplayScore(overall),
		SemanticScore:   toDisplayScore(semantic),
		SkillScore:      toDisplayScore(skill),
		ExperienceScore: toDisplayScore(experience),
		LocationScore:   toDisplayScore(location),
		MatchingSkills:  matching,
	}
}

var yearsPattern = regexp.MustCompile(`\b(\d+)\s*(?:years?|yrs?)\b`)

// experienceScore compares years-of-experience mentions. If the job states
// required years and the resume meets or exceeds the maximum stated, the
// score is 1.0; below that it is the prorated ratio. Absence of years on
// either side is neutral (1.0), never a penalty.
func experienceScore(normalizedResume, normalizedJob string) float64 {
	jobYears := maxYears(normalizedJob)
	resumeYears := maxYears(normalizedResume)
	if jobYears == 0 || resumeYears == 0 {
		return 1.0
	}

	ratio := float64(resumeYears) / float64(max(jobYears, 1))
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

// maxYears extracts the largest integer "N years"/"N yrs" mention, 0 if none.
func maxYears(normalized string) int {
	matches := yearsPattern.FindAllStringSubmatch(normalized, -1)
	years := 0
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil && n > years {
			years = n
		}
	}
	return years
}

// locationScore compares locations textually: exact normalized match scores
// 1.0, any shared token (city, region, country) scores 0.5, otherwise 0.0.
// This is a heuristic, not a geocoded comparison. The second return is false
// when either location is missing.
func locationScore(resumeLocation, jobLocation string) (float64, bool) {
	resume := Normalize(resumeLocation)
	job := Normalize(jobLocation)
	if resume == "" || job == "" {
		return 0.0, false
	}

	if resume == job {
		return 1.0, true
	}

	jobTokens := make(map[string]bool)
	for _, tok := range strings.Fields(job) {
		jobTokens[tok] = true
	}
	for _, tok := range strings.Fields(resume) {
		if jobTokens[tok] {
			return 0.5, true
		}
	}
	return 0.0, true
}

// toDisplayScore converts a clamped [0,1] score to the 0-100 display scale,
// rounded to two decimals.
func toDisplayScore(v float64) float64 {
	return math.Round(clamp01(v)*100*100) / 100
}
