// ABOUTME: Built-in portfolio content used to seed an empty store
// ABOUTME: Six showcase projects and three skill categories

package content

// HomeProjectLimit is how many projects the home page grid shows.
const HomeProjectLimit = 6

// DefaultSkills returns the starter skill categories.
func DefaultSkills() []SkillCategory {
	return []SkillCategory{
		{
			Name:   "Frontend",
			Skills: []string{"React", "TypeScript", "Next.js", "TailwindCSS", "Vue.js", "JavaScript", "HTML/CSS"},
		},
		{
			Name:   "Backend",
			Skills: []string{"Node.js", "Python", "PostgreSQL", "MongoDB", "GraphQL", "REST APIs", "Express"},
		},
		{
			Name:   "AI & ML",
			Skills: []string{"OpenAI/GPT", "LangChain", "TensorFlow", "Prompt Engineering", "Vector DBs", "RAG", "Fine-tuning"},
		},
	}
}

// DefaultSettings returns a starter profile that passes validation.
func DefaultSettings() *PortfolioSettings {
	return &PortfolioSettings{
		Name:    "Your Name",
		Title:   "Web Developer",
		Tagline: "Building AI-powered web applications",
		Bio:     "I design and build web applications that put machine learning to work.",
		Email:   "hello@example.com",
		Skills:  DefaultSkills(),
	}
}

// DefaultProjects returns the showcase projects, oldest first.
func DefaultProjects() []*Project {
	return []*Project{
		{
			Title:       "AI Content Generator",
			Description: "A powerful web application that uses GPT-4 to generate high-quality content for blogs, social media, and marketing materials with customizable tone and style.",
			ImageURL:    "https://images.unsplash.com/photo-1677442136019-21780ecad995?w=800&q=80",
			Tags:        []string{"React", "OpenAI", "Node.js", "TailwindCSS"},
			IconRef:     "wand",
			GradientRef: "violet-purple",
		},
		{
			Title:       "Smart Chatbot Platform",
			Description: "Enterprise-grade chatbot builder with natural language processing, multi-channel deployment, and advanced analytics dashboard.",
			ImageURL:    "https://images.unsplash.com/photo-1531746790731-6c087fecd65a?w=800&q=80",
			Tags:        []string{"Next.js", "LangChain", "PostgreSQL", "WebSocket"},
			IconRef:     "message",
			GradientRef: "blue-cyan",
		},
		{
			Title:       "AI Image Editor",
			Description: "Browser-based image editing tool with AI-powered features including background removal, style transfer, and intelligent object detection.",
			ImageURL:    "https://images.unsplash.com/photo-1633356122102-3fe601e05bd2?w=800&q=80",
			Tags:        []string{"React", "TensorFlow.js", "Canvas API", "Stable Diffusion"},
			IconRef:     "image",
			GradientRef: "pink-rose",
		},
		{
			Title:       "Predictive Analytics Dashboard",
			Description: "Real-time analytics platform with machine learning models for business forecasting, trend analysis, and automated reporting.",
			ImageURL:    "https://images.unsplash.com/photo-1551288049-bebda4e38f71?w=800&q=80",
			Tags:        []string{"Vue.js", "Python", "TensorFlow", "D3.js"},
			IconRef:     "brain",
			GradientRef: "emerald-teal",
		},
		{
			Title:       "Voice Assistant Web App",
			Description: "Hands-free web navigation and task management using advanced speech recognition and natural language understanding.",
			ImageURL:    "https://images.unsplash.com/photo-1589254065878-42c9da997008?w=800&q=80",
			Tags:        []string{"React", "Web Speech API", "GPT-4", "Firebase"},
			IconRef:     "bot",
			GradientRef: "orange-amber",
		},
		{
			Title:       "AI Code Assistant",
			Description: "Developer productivity tool that provides intelligent code suggestions, automated documentation, and bug detection in real-time.",
			ImageURL:    "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=800&q=80",
			Tags:        []string{"TypeScript", "Monaco Editor", "CodeLlama", "Express"},
			IconRef:     "sparkles",
			GradientRef: "indigo-violet",
		},
	}
}
