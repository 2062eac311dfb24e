// Package email sends templated Markdown email from an inbox to a
// role.
package email

import (
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

var Module = &core.Module{
	Name: "email",
	Resources: map[string]*core.Resource{
		"email": {
			Actions: map[string]*core.ActionDef{
				"send_email": {
					Help: "Send an email from an inbox to a role.",
					Params: map[string]*core.ParamSpec{
						"from":    {Type: "reference", Collection: "inboxes", Required: true},
						"to":      {Type: "reference", Collection: "roles", Required: true},
						"subject": {Type: "string", Required: true},
						"body":    {Type: "markdown", Required: true},
					},
					GetOps: sendEmail,
				},
			},
		},
	},
}

func sendEmail(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	inbox := ac.ScriptContent.Inbox(ps.String("from"))
	if inbox == nil {
		return []core.ResultOp{core.Errorf("Could not find inbox named %q.", ps.String("from"))}, nil
	}
	role := ac.ScriptContent.Role(ps.String("to"))
	if role == nil {
		return []core.ResultOp{core.Errorf("Could not find role named %q.", ps.String("to"))}, nil
	}
	player := ac.EvalContext.Map(role.Name)
	if player == nil {
		return []core.ResultOp{core.Errorf("Could not find player context for %q.", role.Name)}, nil
	}
	address, _ := player["email"].(string)
	if address == "" {
		return []core.ResultOp{core.Warnf("Tried to send email but player %q had no email address.", role.Name)}, nil
	}

	subject := core.TemplateText(ac.EvalContext, ps["subject"], ac.Timezone, role.Name)
	body := core.TemplateText(ac.EvalContext, ps["body"], ac.Timezone, role.Name)
	bodyHTML := RenderMarkdown(body)

	return []core.ResultOp{&core.SendEmail{
		From:     inbox.Address,
		To:       []string{address},
		Subject:  subject,
		BodyHTML: bodyHTML,
		BodyText: PlainText(bodyHTML),
	}}, nil
}

// RenderMarkdown renders Markdown as HTML.
func RenderMarkdown(md string) string {
	return string(blackfriday.Run([]byte(md)))
}

// Line breaks after closing tags: a blank line after blocks, a single
// break after rows and list items.
var breaks = map[string]string{
	"p": "\n\n", "div": "\n\n", "ul": "\n\n", "ol": "\n\n", "table": "\n\n",
	"blockquote": "\n\n", "pre": "\n\n",
	"h1": "\n\n", "h2": "\n\n", "h3": "\n\n", "h4": "\n\n", "h5": "\n\n", "h6": "\n\n",
	"li": "\n", "tr": "\n",
}

// PlainText is a text rendering of HTML for mail clients that want
// one.  Link targets follow their text in parentheses.
func PlainText(src string) string {
	var (
		acc  strings.Builder
		z    = html.NewTokenizer(strings.NewReader(src))
		href []string
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapse(acc.String()))
		case html.TextToken:
			text := z.Text()
			// Whitespace between tags is layout.
			if strings.TrimSpace(string(text)) == "" && strings.Contains(string(text), "\n") {
				continue
			}
			acc.Write(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "br":
				acc.WriteString("\n")
			case "li":
				acc.WriteString("- ")
			case "a":
				link := ""
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "href" {
						link = string(v)
					}
				}
				href = append(href, link)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "a" && len(href) > 0 {
				if link := href[len(href)-1]; link != "" {
					acc.WriteString(" (" + link + ")")
				}
				href = href[:len(href)-1]
			}
			acc.WriteString(breaks[tag])
		}
	}
}

// collapse squeezes runs of blank lines down to one.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	acc := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		acc = append(acc, line)
	}
	return strings.Join(acc, "\n")
}
