package source

import (
	"strings"
	"testing"
)

func readHTML(t *testing.T, input string) *Document {
	t.Helper()
	d, err := (&HTMLReader{}).Read(strings.NewReader(input), "share.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestHTMLReader_RoleAttributes(t *testing.T) {
	input := `<html><head><title>Go help</title></head><body>
<nav>Sidebar</nav>
<div data-message-author-role="user"><div>How do I   loop?</div></div>
<div data-message-author-role="assistant"><div class="markdown">
<p>Like this:</p>
<pre><code>for i := range 3 {
	fmt.Println(i)
}</code></pre>
</div></div>
<div data-message-author-role="system"><p>hidden</p></div>
</body></html>`

	d := readHTML(t, input)
	if d.Title != "Go help" {
		t.Errorf("expected title from <title>, got %q", d.Title)
	}
	want := "User:\nHow do I loop?\n\nAssistant:\nLike this:\n\n```\nfor i := range 3 {\n\tfmt.Println(i)\n}\n```"
	if d.Text != want {
		t.Errorf("expected\n%q\ngot\n%q", want, d.Text)
	}
}

func TestHTMLReader_PlainPage(t *testing.T) {
	input := `<body><header>Site</header><h2>User</h2><p>hi<br>there</p><script>var x</script><p>bye</p></body>`
	d := readHTML(t, input)
	if d.Title != "share" {
		t.Errorf("expected filename title, got %q", d.Title)
	}
	want := "## User\n\nhi\nthere\n\nbye"
	if d.Text != want {
		t.Errorf("expected %q, got %q", want, d.Text)
	}
}

func TestHTMLReader_Fragment(t *testing.T) {
	d := readHTML(t, `<p>User: a</p><p>Assistant: b</p>`)
	if d.Text != "User: a\n\nAssistant: b" {
		t.Errorf("unexpected text %q", d.Text)
	}
}
