package enrich

import (
	"fmt"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	brandAnalysisSystem = "You are a brand analysis expert. Provide detailed, actionable insights about companies based on their website content."
	appConceptSystem    = "You are a mobile app strategist who creates innovative, practical app concepts that solve real business problems and provide clear ROI."
	imagePromptSystem   = "You are an expert at creating detailed prompts for AI image generation, specifically for mobile app mockups and UI designs."
	emailSystem         = "You are an expert cold email copywriter who writes personalized, value-driven emails that get responses. Focus on the recipient's business needs and provide clear value."
)

const brandAnalysisPrompt = `Analyze this website content and extract brand information:

Website URL: %s
Content: %s

Please provide a detailed brand analysis including:
1. Company name and industry
2. Primary services or products
3. Brand colors (if mentioned or can be inferred)
4. Brand tone and personality (professional, casual, innovative, etc.)
5. Target audience
6. Key value propositions
7. Company size estimation (startup, small business, enterprise)
8. Technology stack or tools they might use

Format your response as a structured analysis with clear sections.`

const appConceptPrompt = `Based on this brand analysis, generate 3 unique mobile app concepts that would be valuable for this business:

Brand Analysis:
%s

For each app concept, provide:
1. App Name
2. Core Purpose (1-2 sentences)
3. Key Features (3-5 bullet points)
4. Target Users
5. Business Value/ROI

After presenting all 3 concepts, select the BEST one and explain why it's the most suitable for this business.

Format your response clearly with numbered concepts and a final recommendation section.`

const imagePromptPrompt = `Create a detailed image generation prompt for a mobile app mockup based on this information:

Brand Analysis:
%s

App Concept:
%s

Generate a detailed prompt for Stable Diffusion to create a professional mobile app mockup. The prompt should include:
1. App interface description
2. Color scheme based on brand
3. Layout and UI elements
4. Professional mockup style
5. High quality specifications

Make the prompt detailed and specific for generating a realistic mobile app mockup image.
Only return the image generation prompt, nothing else.`

const emailPrompt = `Write a personalized cold outreach email for this lead:

Company: %s
Website: %s
Contact Email: %s

Brand Analysis:
%s

App Concept:
%s

Write a compelling cold email that:
1. Personalizes the opening based on their business
2. Briefly mentions the specific app concept
3. Highlights the business value and ROI
4. Includes a soft call-to-action
5. Keeps it concise (under 150 words)
6. Sounds natural and not overly salesy
7. Mentions that you've created a mockup to show the concept

Subject line should be compelling and personalized.
Format: Subject: [subject line]
Email: [email body]`

// mockupSuffix is appended to the generated image prompt.
const mockupSuffix = ", professional mobile app mockup, clean UI design, modern interface, high quality, detailed, realistic phone mockup, app store quality"

const (
	promptContentChars = 3000
	sampleContentChars = 1000
)

func buildBrandAnalysisPrompt(websiteURL, content string) string {
	return fmt.Sprintf(brandAnalysisPrompt, websiteURL, truncateRunes(content, promptContentChars))
}

func buildAppConceptPrompt(ba *model.BrandAnalysis) string {
	return fmt.Sprintf(appConceptPrompt, ba.Analysis)
}

func buildImagePromptPrompt(ba *model.BrandAnalysis, ac *model.AppConcept) string {
	return fmt.Sprintf(imagePromptPrompt, ba.Analysis, ac.Concepts)
}

func buildEmailPrompt(lead model.Lead, ba *model.BrandAnalysis, ac *model.AppConcept) string {
	email := "Not available"
	if lead.HasContactEmail() {
		email = *lead.ContactEmail
	}
	return fmt.Sprintf(emailPrompt, lead.CompanyName, lead.WebsiteURL, email, ba.Analysis, ac.Concepts)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
