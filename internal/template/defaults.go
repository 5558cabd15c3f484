package template

// Default returns the built-in career report template, used when no
// uploaded template exists for a tenant.
func Default() []Section {
	return []Section{
		{
			ID:    "compatibility_score",
			Title: "Career compatibility score %: {{user.compatibility_percentage}}",
			kind:  KindStatic,
		},
		{
			ID: "introduction",
			Prompt: "Generate a highly personalized, engaging, and emotionally compelling message in 150 words " +
				"that gives the user an overview on their compatibility with the {{occupation.career_title}} career. " +
				"This introduction should be based on the user's personality profile {{user.personality_profile}}, " +
				"and compatibility score of {{user.compatibility_percentage}} with the profession of {{occupation.career_title}}. " +
				"Always mention the user's name to personalize the report. " +
				"Adjust the enthusiasm based on their compatibility score: 90-100 maximum excitement; 75-89 positive but " +
				"realistic; 50-74 balanced; below 50 constructive realism, highlighting challenges and alternative directions. " +
				"Keep the introduction in around 150 words, with no bullet points, just paragraphs, and weave in insights " +
				"based on their personality traits without explicitly mentioning their scores.",
			kind: KindPrompt,
		},
		{
			ID:    "overview",
			Title: "Overview",
			Prompt: "Write a concise, user-friendly overview of the {{occupation.career_title}} career in one paragraph. " +
				"Describe the primary purpose of the career and its significance in the industry. Use clear, engaging " +
				"language to explain the profession's core functions and why it matters.",
			kind: KindPrompt,
		},
		{
			ID:    "on_the_job",
			Title: "On the job, you would:",
			Prompt: "List a maximum of 5 key responsibilities and common tasks typically associated with the " +
				"{{occupation.career_title}} career, drawing on these tasks from the occupational database: " +
				"{{occupation.tasks}}. Present this information in a concise bullet-point format without subtitles. " +
				"Each point should clearly outline a specific duty performed on a day-to-day basis in this role.",
			kind: KindPrompt,
		},
		{
			ID:    "day_in_the_life",
			Title: "A day in the life of a {{occupation.career_title}}",
			Prompt: "Create an engaging, story-like narrative in around 300 words that paints a vivid picture of what a " +
				"typical day might look like for someone in the role of {{occupation.career_title}}. Use the information " +
				"provided about the tasks {{occupation.tasks}}, work activities {{occupation.work_activities}}, work " +
				"context {{occupation.work_context}}, and detailed activities {{occupation.detailed_work_activities}}, " +
				"together with the user's personality test results {{user.personality_profile}} and RIASEC scores: " +
				"{{user.ppm_scores}}. Always use the user's name in third person to make the story feel personal, and " +
				"balance excitement with realism.",
			kind: KindPrompt,
		},
		{
			ID:    "success_attributes",
			Title: "What it takes to be successful as a {{occupation.career_title}}",
			Prompt: "Generate a structured response that outlines the essential skills {{occupation.skills}}, abilities " +
				"{{occupation.abilities}}, work styles {{occupation.work_styles}}, and knowledge {{occupation.knowledge}} " +
				"required for success as a {{occupation.career_title}}. For each of the four categories, give a one-sentence " +
				"introduction and list the five most important attributes in bold followed by a short definition in clear, " +
				"simple language.",
			kind: KindPrompt,
		},
		{
			ID:    "related_careers",
			Title: "Related careers",
			Prompt: "Enlist all related occupations from the occupational database {{occupation.related_occupations}} " +
				"associated with the {{occupation.career_title}}. Present the information in a clean bullet list that " +
				"includes the career title, prefaced by: \"The following careers are closely related to " +
				"{{occupation.career_title}}. They share overlapping skills, tasks, or industries, making them logical " +
				"alternatives or pivot opportunities.\"",
			kind: KindPrompt,
		},
		{
			ID:            "education",
			Title:         "Education",
			DescriptionFn: "format_education",
			kind:          KindComputed,
		},
	}
}
