package prompt

import (
	"fmt"
	"strings"

	"research-assistant-be/pkg/store"
)

const (
	ResearcherLabel = "Researcher"
	AssistantLabel  = "AI Assistant"
	ExpertLabel     = "Expert Assistant"
)

// StopsFor returns the stop sequences that keep the model from writing the
// researcher's next line or a second assistant turn.
func StopsFor(assistantLabel string) []string {
	return []string{
		ResearcherLabel + ":",
		"\n" + ResearcherLabel + ":",
		ResearcherLabel + ": ",
		"\n" + ResearcherLabel + ": ",
		"\n" + assistantLabel + ":",
		"\n" + assistantLabel + ": ",
	}
}

// SynthesisStops cut generation before the model writes its own reference list.
var SynthesisStops = []string{"References:", "\nReferences:", "Bibliography:", "\nBibliography:"}

// Turn is the trailing exchange appended to every conversational prompt.
func Turn(query, assistantLabel string) string {
	return fmt.Sprintf("%s: %s\n\n%s: ", ResearcherLabel, query, assistantLabel)
}

// ClarifyFirst opens a clarifying conversation.
func ClarifyFirst(query string) string {
	var b strings.Builder
	b.WriteString("You are an academic research assistant that helps researchers compose search queries")
	b.WriteString(" to find the most important related work in their field. The researcher gives you an initial")
	b.WriteString(" query, and you ask questions to understand their research questions and the keywords that will")
	b.WriteString(" surface the best related work.\n\n")
	b.WriteString("After each researcher message, first decide whether you have enough information to search.")
	b.WriteString(" If you do, write a detailed summary of the ideas; it will be handed to another model to turn into")
	b.WriteString(" search queries. Put ONLY the summary in [brackets], never dialogue or chit chat.")
	b.WriteString(" If you do not have enough information yet, ask the researcher one question at a time.\n\n")
	b.WriteString(Turn(query, AssistantLabel))
	return b.String()
}

// ClarifyNext continues a clarifying conversation from its literal history.
func ClarifyNext(history, query string) string {
	return history + "\n\n" + Turn(query, AssistantLabel)
}

// PaperSeed opens a discussion about one paper's full text.
func PaperSeed(originalQuery, title, paperText, query string) string {
	var b strings.Builder
	b.WriteString("You are an expert helping a researcher read a paper.")
	writeIntent(&b, originalQuery)
	b.WriteString("\nYou will help them work through ideas for this, informed by the paper you just read")
	if title != "" {
		fmt.Fprintf(&b, " (%q)", title)
	}
	b.WriteString(":\n")
	b.WriteString(paperText)
	b.WriteString("\n\n")
	writeScratchPadRules(&b)
	b.WriteString(Turn(query, ExpertLabel))
	return b.String()
}

// ResultsSeed opens a discussion about the ranked results of a search.
func ResultsSeed(originalQuery string, papers []store.Paper, query string) string {
	var b strings.Builder
	b.WriteString("You are an expert helping a researcher make sense of a literature search.")
	writeIntent(&b, originalQuery)
	b.WriteString("\nThese are the most relevant papers found, best first:\n")
	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Title)
		if p.PublicationDate != "" {
			fmt.Fprintf(&b, " (%s)", p.PublicationDate)
		}
		if s := paperGist(p); s != "" {
			b.WriteString(": ")
			b.WriteString(s)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	writeScratchPadRules(&b)
	b.WriteString(Turn(query, ExpertLabel))
	return b.String()
}

// DiscussNext continues a discussion, reminding the model of its own notes.
func DiscussNext(history, query, notes string) string {
	var b strings.Builder
	b.WriteString(history)
	fmt.Fprintf(&b, "\n\n%s: %s\n\n", ResearcherLabel, query)
	if strings.TrimSpace(notes) != "" {
		fmt.Fprintf(&b, "Notes to self: %s\n\n", strings.TrimSpace(notes))
	}
	b.WriteString(ExpertLabel + ": ")
	return b.String()
}

func writeIntent(b *strings.Builder, originalQuery string) {
	if originalQuery == "" {
		return
	}
	fmt.Fprintf(b, " The researcher is preparing a project about %q.", originalQuery)
}

func writeScratchPadRules(b *strings.Builder) {
	b.WriteString("If you want to reason or make notes that are not meant for the researcher,")
	b.WriteString(" put them in <<double angle brackets>>. The researcher WILL NOT see text in <<double angle brackets>>.\n")
	b.WriteString("Keep your replies concise and informative.\n")
}

func paperGist(p store.Paper) string {
	switch {
	case p.Summary != "":
		return p.Summary
	case p.TLDR != "":
		return p.TLDR
	default:
		return ""
	}
}

// Rephrase asks for a handful of bracketed boolean search queries.
func Rephrase(query string) string {
	var b strings.Builder
	b.WriteString("Task: rewrite the query below into search queries for an academic paper index.\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- Add relevant academic keywords and phrases\n")
	b.WriteString("- Prefer technical and scientific terminology\n")
	b.WriteString("- Keep each query short and specific\n")
	b.WriteString("- Put every rephrased query inside square brackets\n\n")
	b.WriteString("Example:\n\n")
	b.WriteString("Query: Preference learning for autonomous driving style\n\n")
	b.WriteString("Reasoning: The researcher wants related work on driving styles, likely learned from implicit or")
	b.WriteString(" explicit driver feedback. Relevant fields include personalization, imitation learning, style")
	b.WriteString(" transfer and classical control. A few focused queries will cover them.\n\n")
	b.WriteString("Rephrased queries: [Preference learning AND (Driving style OR autonomous driving style)]\n")
	b.WriteString("[(Autonomous vehicles OR Self-driving cars) AND (Personalization OR Style)]\n")
	b.WriteString("[(Style transfer OR Personalization OR preferences) AND (Imitation learning OR Reinforcement learning OR control)]\n\n")
	b.WriteString("Your query is:\n\n")
	fmt.Fprintf(&b, "Query: %q\n\n", query)
	b.WriteString("Reasoning:")
	return b.String()
}

// Relevance asks for a bare 0-100 score.
func Relevance(query, title, text string) string {
	var b strings.Builder
	b.WriteString("Rate how relevant this paper is to the query on a scale of 0-100.\n\n")
	fmt.Fprintf(&b, "Query: %s\nTitle: %s\nAbstract: %s\n\n", query, orNA(title), text)
	b.WriteString("Consider:\n")
	b.WriteString("- Direct relevance to the query topic\n")
	b.WriteString("- Methodological alignment\n")
	b.WriteString("- Potential usefulness\n")
	b.WriteString("- Match of research focus\n\n")
	b.WriteString("Return only the numerical score (0-100):")
	return b.String()
}

// Summary asks for a short query-focused summary of one paper.
func Summary(query string, p store.Paper) string {
	var b strings.Builder
	b.WriteString("Summarize the following academic paper in 3-4 informative sentences,")
	b.WriteString(" focusing on how it relates to the original query.\n\n")
	fmt.Fprintf(&b, "Original query: %s\nTitle: %s\nAuthors: %s\nAbstract: %s\n\n",
		query, orNA(p.Title), strings.Join(p.Authors, ", "), orNA(p.Abstract))
	b.WriteString("Focus on:\n")
	b.WriteString("- Main research contribution\n")
	b.WriteString("- Key findings or methodology\n")
	b.WriteString("- Practical implications\n\n")
	b.WriteString("Return only the summary, without commentary.\n\n")
	b.WriteString("Summary:")
	return b.String()
}

// CitedPaper is one numbered entry in a synthesis prompt.
type CitedPaper struct {
	Marker string
	Paper  store.Paper
}

// Timeline asks for a chronological narrative over a fixed, cited list.
func Timeline(papers []CitedPaper) string {
	var b strings.Builder
	b.WriteString("Create a research timeline for the following papers. Do not add new papers, use ONLY this list:\n\n")
	for _, cp := range papers {
		fmt.Fprintf(&b, "- %s: %s %s: %s\n", cp.Paper.PublicationDate, orNA(cp.Paper.Title), cp.Marker, summaryOrPlaceholder(cp.Paper))
	}
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Focus on the evolution of ideas and methodologies\n")
	b.WriteString("- Highlight key breakthroughs and innovations\n")
	b.WriteString("- Use bullet points with years\n")
	b.WriteString("- Reference specific papers with their citation numbers in square brackets\n")
	b.WriteString("- Do not include a list of references, it is added separately\n")
	b.WriteString("- Keep it concise but informative\n")
	b.WriteString("- Format the answer as Markdown\n\n")
	b.WriteString("Timeline:")
	return b.String()
}

// FutureWork asks for research directions grounded in a fixed, cited list.
func FutureWork(papers []CitedPaper) string {
	var b strings.Builder
	b.WriteString("Identify fruitful paths or ideas for future work based on this body of recent work:\n\n")
	for _, cp := range papers {
		fmt.Fprintf(&b, "- %s %s:\n%s\n", orNA(cp.Paper.Title), cp.Marker, summaryOrPlaceholder(cp.Paper))
	}
	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Consider how ideas and methods evolved and where the key breakthroughs were\n")
	b.WriteString("- Reference specific papers using their citation numbers in square brackets\n")
	b.WriteString("- Be CONCISE but informative, no pleasantries or commentary\n")
	b.WriteString("- Do not include a list of references, it is added separately\n")
	b.WriteString("- Format the answer as Markdown\n\n")
	b.WriteString("Future work ideas:")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func summaryOrPlaceholder(p store.Paper) string {
	if s := paperGist(p); s != "" {
		return s
	}
	return "No summary available"
}
