// cmd/tools/template-lint/main.go
//
// Validates a report template JSON file: schema, section kinds, and
// placeholder references against the context keys the generator builds.
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"

	"career-report-workers/internal/template"
)

// contextKeys are the namespaced keys the context builder produces.
// A placeholder outside this set will be left literal at generation time.
var contextKeys = map[string]bool{
	"occupation.career_title":             true,
	"occupation.soc_code":                 true,
	"occupation.tasks":                    true,
	"occupation.work_activities":          true,
	"occupation.detailed_work_activities": true,
	"occupation.work_context":             true,
	"occupation.skills":                   true,
	"occupation.abilities":                true,
	"occupation.work_values":              true,
	"occupation.work_styles":              true,
	"occupation.knowledge":                true,
	"occupation.education":                true,
	"occupation.interests":                true,
	"occupation.related_occupations":      true,
	"user.display_name":                   true,
	"user.personality_profile":            true,
	"user.ppm_scores":                     true,
	"user.occupation_weightings":          true,
	"user.compatibility_score":            true,
	"user.compatibility_percentage":       true,
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-z]+)\.([a-z0-9_]+)\s*\}\}`)

func main() {
	path := flag.String("path", "", "Path to template JSON file")
	flag.Parse()

	if *path == "" {
		fmt.Println("Error: -path is required.")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Printf("❌ Cannot read %s: %v\n", *path, err)
		os.Exit(1)
	}

	sections, err := template.ParseAndValidate(data)
	if err != nil {
		fmt.Printf("❌ Template is invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Schema valid: %d sections\n", len(sections))

	warnings := 0
	for _, s := range sections {
		fields := map[string]string{
			"title":       s.Title,
			"sub_title":   s.SubTitle,
			"description": s.Description,
			"prompt":      s.Prompt,
		}
		for field, text := range fields {
			for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
				key := match[1] + "." + match[2]
				if !contextKeys[key] {
					fmt.Printf("⚠️  section %q %s references unknown context key %q\n", s.ID, field, key)
					warnings++
				}
			}
		}
		fmt.Printf("   - %s (%s)\n", s.ID, s.Kind())
	}

	if warnings > 0 {
		fmt.Printf("⚠️  %d unresolved placeholder(s); they will render literally\n", warnings)
		os.Exit(2)
	}
	fmt.Println("✅ All placeholders resolve against the generation context")
}
