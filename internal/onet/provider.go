// Package onet exposes read-only queries against the O*NET occupational
// database. All lookups are keyed by SOC code; rows are deduplicated and
// importance-sorted in SQL so callers receive ready-to-use collections.
package onet

import (
	"context"
	"database/sql"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

// ScoredItem is an attribute with a survey importance value.
type ScoredItem struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// Interest is a RIASEC interest area with its reference description.
type Interest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InterestWeight is the occupation's ideal score for one interest element,
// fed into the assessment provider's compatibility computation.
type InterestWeight struct {
	ElementID string  `json:"element_id"`
	Value     float64 `json:"value"`
}

// EducationCategory is one row of the education requirement distribution:
// the share of incumbents reporting a given requirement level.
type EducationCategory struct {
	Requirement string  `json:"requirement"`
	Percentage  float64 `json:"percentage"`
}

// Provider runs occupation queries against the O*NET schema.
type Provider struct {
	db     *sql.DB
	logger logger.Logger
}

func NewProvider(db *sql.DB, log logger.Logger) *Provider {
	return &Provider{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "onet"}),
	}
}

// TitleByCode resolves the occupation title for a SOC code.
func (p *Provider) TitleByCode(ctx context.Context, socCode string) (string, error) {
	var title string
	err := p.db.QueryRowContext(ctx,
		`SELECT title FROM onet__occupation_data WHERE onetsoc_code = $1`, socCode,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return "", errors.NewOccupationNotFoundError(socCode)
	}
	if err != nil {
		return "", errors.NewOnetQueryFailedError("occupation_data", err)
	}
	return title, nil
}

// CodeByTitle resolves the SOC code for an exact occupation title.
func (p *Provider) CodeByTitle(ctx context.Context, title string) (string, error) {
	var code string
	err := p.db.QueryRowContext(ctx,
		`SELECT onetsoc_code FROM onet__occupation_data WHERE title = $1`, title,
	).Scan(&code)
	if err == sql.ErrNoRows {
		return "", errors.NewOccupationNotFoundError(title)
	}
	if err != nil {
		return "", errors.NewOnetQueryFailedError("occupation_data", err)
	}
	return code, nil
}

// Tasks returns the occupation's task statements.
func (p *Provider) Tasks(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "task_statements",
		`SELECT task FROM onet__task_statements WHERE onetsoc_code = $1 ORDER BY task_id`, socCode)
}

// WorkActivities returns the generalized work activity names.
func (p *Provider) WorkActivities(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "work_activities",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__work_activities wa
		 JOIN onet__content_model_reference cmr ON wa.element_id = cmr.element_id
		 WHERE wa.onetsoc_code = $1`, socCode)
}

// DetailedWorkActivities returns the detailed activity titles linked to the
// occupation's work activity elements.
func (p *Provider) DetailedWorkActivities(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "dwa_reference",
		`SELECT dwa_title FROM onet__dwa_reference
		 WHERE element_id IN (
		   SELECT element_id FROM onet__work_activities WHERE onetsoc_code = $1
		 )`, socCode)
}

// WorkContext returns the work context element names.
func (p *Provider) WorkContext(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "work_context",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__work_context wc
		 JOIN onet__content_model_reference cmr ON wc.element_id = cmr.element_id
		 WHERE wc.onetsoc_code = $1`, socCode)
}

// Skills returns the skill element names.
func (p *Provider) Skills(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "skills",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__skills s
		 JOIN onet__content_model_reference cmr ON s.element_id = cmr.element_id
		 WHERE s.onetsoc_code = $1`, socCode)
}

// Abilities returns the ability element names.
func (p *Provider) Abilities(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "abilities",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__abilities a
		 JOIN onet__content_model_reference cmr ON a.element_id = cmr.element_id
		 WHERE a.onetsoc_code = $1`, socCode)
}

// WorkValues returns the work value element names.
func (p *Provider) WorkValues(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "work_values",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__work_values wv
		 JOIN onet__content_model_reference cmr ON wv.element_id = cmr.element_id
		 WHERE wv.onetsoc_code = $1`, socCode)
}

// WorkStyles returns the work style element names.
func (p *Provider) WorkStyles(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "work_styles",
		`SELECT DISTINCT cmr.element_name
		 FROM onet__work_styles ws
		 JOIN onet__content_model_reference cmr ON ws.element_id = cmr.element_id
		 WHERE ws.onetsoc_code = $1`, socCode)
}

// RelatedOccupations returns the titles of related occupations.
func (p *Provider) RelatedOccupations(ctx context.Context, socCode string) ([]string, error) {
	return p.stringList(ctx, "related_occupations",
		`SELECT o2.title
		 FROM onet__related_occupations ro
		 JOIN onet__occupation_data o2 ON ro.related_onetsoc_code = o2.onetsoc_code
		 WHERE ro.onetsoc_code = $1`, socCode)
}

// Knowledge returns knowledge areas sorted by importance descending.
func (p *Provider) Knowledge(ctx context.Context, socCode string) ([]ScoredItem, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT cmr.element_name, k.data_value
		 FROM onet__knowledge k
		 JOIN onet__content_model_reference cmr ON k.element_id = cmr.element_id
		 WHERE k.onetsoc_code = $1
		 ORDER BY k.data_value DESC`, socCode)
	if err != nil {
		return nil, errors.NewOnetQueryFailedError("knowledge", err)
	}
	defer rows.Close()

	var items []ScoredItem
	for rows.Next() {
		var item ScoredItem
		if err := rows.Scan(&item.Name, &item.Importance); err != nil {
			return nil, errors.NewOnetQueryFailedError("knowledge", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewOnetQueryFailedError("knowledge", err)
	}
	return items, nil
}

// Education returns the education requirement distribution: required-level
// scale only, zero-response rows filtered, sorted by share descending.
func (p *Provider) Education(ctx context.Context, socCode string) ([]EducationCategory, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT ec.category_description, e.data_value
		 FROM onet__education_training_experience e
		 JOIN onet__ete_categories ec ON e.category = ec.category AND ec.scale_id = 'RL'
		 WHERE e.onetsoc_code = $1 AND e.scale_id = 'RL' AND e.data_value > 0
		 ORDER BY e.data_value DESC`, socCode)
	if err != nil {
		return nil, errors.NewOnetQueryFailedError("education_training_experience", err)
	}
	defer rows.Close()

	var categories []EducationCategory
	for rows.Next() {
		var c EducationCategory
		if err := rows.Scan(&c.Requirement, &c.Percentage); err != nil {
			return nil, errors.NewOnetQueryFailedError("education_training_experience", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewOnetQueryFailedError("education_training_experience", err)
	}
	return categories, nil
}

// Interests returns the occupation's RIASEC interest areas with reference
// descriptions.
func (p *Provider) Interests(ctx context.Context, socCode string) ([]Interest, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT cmr.element_name, cmr.description
		 FROM onet__interests i
		 JOIN onet__content_model_reference cmr ON i.element_id = cmr.element_id
		 WHERE i.onetsoc_code = $1`, socCode)
	if err != nil {
		return nil, errors.NewOnetQueryFailedError("interests", err)
	}
	defer rows.Close()

	var interests []Interest
	for rows.Next() {
		var in Interest
		if err := rows.Scan(&in.Name, &in.Description); err != nil {
			return nil, errors.NewOnetQueryFailedError("interests", err)
		}
		interests = append(interests, in)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewOnetQueryFailedError("interests", err)
	}
	return interests, nil
}

// InterestWeights returns the occupation's raw interest element values,
// the weighting vector for the compatibility computation.
func (p *Provider) InterestWeights(ctx context.Context, socCode string) ([]InterestWeight, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT element_id, data_value FROM onet__interests WHERE onetsoc_code = $1`, socCode)
	if err != nil {
		return nil, errors.NewOnetQueryFailedError("interests", err)
	}
	defer rows.Close()

	var weights []InterestWeight
	for rows.Next() {
		var w InterestWeight
		if err := rows.Scan(&w.ElementID, &w.Value); err != nil {
			return nil, errors.NewOnetQueryFailedError("interests", err)
		}
		weights = append(weights, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewOnetQueryFailedError("interests", err)
	}
	return weights, nil
}

func (p *Provider) stringList(ctx context.Context, dataset, query, socCode string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query, socCode)
	if err != nil {
		return nil, errors.NewOnetQueryFailedError(dataset, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.NewOnetQueryFailedError(dataset, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewOnetQueryFailedError(dataset, err)
	}
	p.logger.Debug("onet query", map[string]interface{}{
		"dataset": dataset,
		"socCode": socCode,
		"rows":    len(values),
	})
	return values, nil
}
