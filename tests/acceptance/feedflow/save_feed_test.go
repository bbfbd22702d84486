package feedflow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"
)

var _ = Describe("Saving and reading the feed", func() {
	It("saves an HTML page and serves it in both feed formats", func() {
		url := testEnv.OriginURL("/article")

		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{"url": url})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("An Example Article"))

		status, feed := testEnv.Get("/feed.xml")
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(feed).To(ContainSubstring(`<rss version="2.0">`))
		Expect(feed).To(ContainSubstring("<title>An Example Article</title>"))
		Expect(feed).To(ContainSubstring(url))

		status, page := testEnv.Get("/feed.html")
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(page).To(ContainSubstring("An Example Article"))
		Expect(page).To(ContainSubstring(`action="/delete"`))
	})

	It("follows redirects to the final document", func() {
		url := testEnv.OriginURL("/moved")

		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{"url": url})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("An Example Article"))

		// The feed keeps the URL as submitted
		_, feed := testEnv.Get("/feed.xml")
		Expect(feed).To(ContainSubstring(url))
	})

	It("titles PDF documents after their file name", func() {
		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{
			"url": testEnv.OriginURL("/paper.pdf"),
		})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("[PDF] paper.pdf"))
	})

	It("marks pages without a title element", func() {
		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{
			"url": testEnv.OriginURL("/untitled"),
		})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("[NO TITLE]"))
	})

	It("rejects a save without a url", func() {
		status, _, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", nil)
		Expect(status).To(Equal(fasthttp.StatusBadRequest))
	})

	It("rejects unsupported schemes", func() {
		status, _, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{
			"url": "ftp://example.com/file",
		})
		Expect(status).To(Equal(fasthttp.StatusBadRequest))
	})

	It("serves titles from the cache on repeated saves", func() {
		url := testEnv.OriginURL("/article")

		status, _, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{"url": url})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(testEnv.OriginHits.Load()).To(Equal(int64(1)))

		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{"url": url})
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("An Example Article"))
		Expect(testEnv.OriginHits.Load()).To(Equal(int64(1)))

		// Still a single feed entry
		_, feed := testEnv.Get("/feed.xml")
		Expect(countOccurrences(feed, "<item>")).To(Equal(1))
	})
})

var _ = Describe("Deleting articles", func() {
	It("removes the article and redirects back to the HTML feed", func() {
		url := testEnv.OriginURL("/article")

		status, body, _ := testEnv.SubmitForm(fasthttp.MethodPut, "/save", map[string]string{"url": url})
		Expect(status).To(Equal(fasthttp.StatusOK))

		guid := extractJSONField(body, "guid")
		Expect(guid).ToNot(BeEmpty())

		status, _, location := testEnv.SubmitForm(fasthttp.MethodPost, "/delete", map[string]string{"guid": guid})
		Expect(status).To(Equal(fasthttp.StatusSeeOther))
		Expect(location).To(Equal("/feed.html"))

		_, feed := testEnv.Get("/feed.xml")
		Expect(feed).ToNot(ContainSubstring("An Example Article"))
	})

	It("accepts deletes for unknown GUIDs", func() {
		status, _, _ := testEnv.SubmitForm(fasthttp.MethodPost, "/delete", map[string]string{
			"guid": "00000000-0000-0000-0000-000000000000",
		})
		Expect(status).To(Equal(fasthttp.StatusSeeOther))
	})
})

var _ = Describe("Service probes", func() {
	It("reports healthy backends", func() {
		status, body := testEnv.Get("/health")
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring(`"database":"ok"`))
		Expect(body).To(ContainSubstring(`"redis":"ok"`))
	})

	It("reports runtime status", func() {
		status, body := testEnv.Get("/status")
		Expect(status).To(Equal(fasthttp.StatusOK))
		Expect(body).To(ContainSubstring("uptime_seconds"))
	})
})
