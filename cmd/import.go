package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Import a web page as a new note",
	Long: heredoc.Doc(`
		Import a web page by URL and create a new note with the page title and
		the main content converted to markdown.

		Pages are fetched with a plain HTTP request. Use --render for pages that
		build their content with JavaScript; this drives a headless Chrome.

		Examples:
		  memo import https://example.com
		  memo import https://docs.example.com --tags docs,reference
		  memo import https://app.example.com/page --render
	`),
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importTags   []string
	importRender bool
	waitTimeout  time.Duration
)

// contentSelectors are tried in order to find the main content of a page.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".main-content",
	".content",
	".post-content",
	".entry-content",
	"body",
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringSliceVarP(&importTags, "tags", "T", []string{}, "Tags for the imported note (comma-separated)")
	importCmd.Flags().BoolVar(&importRender, "render", false, "Render the page in headless Chrome before extracting")
	importCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "Timeout for page loading")
}

func runImport(cmd *cobra.Command, args []string) error {
	pageURL, err := validateImportURL(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Importing from: %s\n", pageURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
	defer cancel()

	var html string
	if importRender {
		html, err = renderPage(ctx, pageURL)
	} else {
		html, err = fetchPage(ctx, pageURL)
	}
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	title, content, err := extractPageContent(pageURL, html)
	if err != nil {
		return err
	}
	if title == "" {
		title = pageURL
	}
	if content == "" {
		return fmt.Errorf("no content found at %s", pageURL)
	}

	fmt.Fprintf(out, "Page title: %s\n", title)
	fmt.Fprintf(out, "Content extracted (%d characters)\n", len(content))

	note, err := createNote(title, content, importTags)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nNote imported successfully!\n")
	fmt.Fprintf(out, "ID: %d\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.TagNames(), ", "))
	}
	fmt.Fprintf(out, "Source: %s\n", pageURL)

	return nil
}

func validateImportURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: only http and https are supported", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return u.String(), nil
}

func fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "memo/"+Version)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// renderPage loads pageURL in headless Chrome and returns the rendered HTML.
func renderPage(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if isRestrictedEnvironment() {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		// Give client-side rendering a moment to settle.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return html, nil
}

// extractPageContent picks the page title and converts the main content
// area to markdown.
func extractPageContent(pageURL, html string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse page: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	var main *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			main = sel
			break
		}
	}
	if main == nil {
		return title, "", nil
	}

	converter := newMarkdownConverter(pageURL)
	markdown := converter.Convert(main)

	content = cleanMarkdownContent(markdown)
	logger.Debug("Extracted content from %s: title='%s', content_length=%d", pageURL, title, len(content))

	return title, content, nil
}

func newMarkdownConverter(pageURL string) *md.Converter {
	converter := md.NewConverter("", true, nil)

	drop := func(content string, selection *goquery.Selection, opt *md.Options) *string {
		text := ""
		return &text
	}

	converter.AddRules(
		md.Rule{Filter: []string{"script", "style", "noscript"}, Replacement: drop},
		md.Rule{Filter: []string{"nav", "aside", "footer"}, Replacement: drop},
		// Keep images pointing at their absolute source.
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				src, exists := selection.Attr("src")
				if !exists {
					text := ""
					return &text
				}

				alt, _ := selection.Attr("alt")
				if alt == "" {
					alt = "Image"
				}

				result := fmt.Sprintf("![%s](%s)", alt, resolveURL(pageURL, src))
				return &result
			},
		},
	)
	return converter
}

// cleanMarkdownContent collapses runs of blank lines and trims each line.
func cleanMarkdownContent(content string) string {
	lines := strings.Split(content, "\n")
	var cleanLines []string

	previousLineEmpty := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if !previousLineEmpty {
				cleanLines = append(cleanLines, "")
				previousLineEmpty = true
			}
			continue
		}

		previousLineEmpty = false
		cleanLines = append(cleanLines, trimmed)
	}

	for len(cleanLines) > 0 && cleanLines[0] == "" {
		cleanLines = cleanLines[1:]
	}
	for len(cleanLines) > 0 && cleanLines[len(cleanLines)-1] == "" {
		cleanLines = cleanLines[:len(cleanLines)-1]
	}

	return strings.Join(cleanLines, "\n")
}

// isRestrictedEnvironment reports whether Chrome's sandbox must be disabled,
// as in CI or containers.
func isRestrictedEnvironment() bool {
	ciEnvVars := []string{
		"CI", "CONTINUOUS_INTEGRATION", "BUILD_NUMBER", "GITHUB_ACTIONS",
		"GITLAB_CI", "JENKINS_URL", "TRAVIS", "CIRCLECI", "BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	// Ubuntu 23.10+ restricts unprivileged user namespaces.
	if _, err := os.Stat("/proc/sys/kernel/apparmor_restrict_unprivileged_userns"); err == nil {
		return true
	}

	return false
}

func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return base.ResolveReference(ref).String()
}
