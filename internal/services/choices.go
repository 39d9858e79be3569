package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// auxFirstPerson maps an auxiliary that precedes "you" to the form used after "I".
// An empty value drops the auxiliary ("do you have" -> "I have").
var auxFirstPerson = map[string]string{
	"are": "am", "were": "was", "have": "have", "has": "have", "had": "had",
	"can": "can", "could": "could", "will": "will", "would": "would",
	"should": "should", "did": "did", "do": "",
}

var whWords = map[string]bool{
	"what": true, "why": true, "how": true, "when": true, "where": true, "who": true, "which": true,
}

var howQuantifiers = map[string]bool{
	"long": true, "much": true, "many": true, "often": true, "far": true, "soon": true,
}

var subjectPronouns = map[string]bool{
	"it": true, "there": true, "this": true, "that": true, "he": true, "she": true, "they": true, "we": true,
}

// words after which "you" is a subject and turns into "I" rather than "me"
var youSubjectFollowers = map[string]bool{
	"are": true, "were": true, "have": true, "had": true, "can": true, "could": true,
	"will": true, "would": true, "should": true, "do": true, "did": true,
	"feel": true, "felt": true, "need": true, "want": true, "think": true, "know": true,
	"like": true, "notice": true, "noticed": true,
}

var pronounSwaps = map[string]string{
	"you": "me", "your": "my", "yours": "mine", "yourself": "myself",
	"you're": "I'm", "you've": "I've", "you'd": "I'd", "you'll": "I'll",
	"me": "you", "my": "your", "mine": "yours", "myself": "yourself",
	"i": "you", "i'm": "you're", "i've": "you've", "i'd": "you'd", "i'll": "you'll",
}

// ChoiceToStatement turns a selected follow-up option into what the customer
// says next. Question-shaped options are read as the avatar's question and
// answered in the first person, so the result never repeats the question.
func ChoiceToStatement(choice string) string {
	text := strings.Join(strings.Fields(choice), " ")
	if text == "" {
		return ""
	}
	words := strings.Fields(strings.TrimRight(text, "?!. "))
	if len(words) == 0 {
		return ""
	}
	lw := make([]string, len(words))
	for i, w := range words {
		lw[i] = strings.ToLower(w)
	}
	if !isQuestion(text, lw) {
		return sentence(text)
	}

	switch {
	case hasWords(lw, "would", "you", "like"):
		return sentence("Yes, I'd like " + swapPronouns(words[3:]))
	case hasWords(lw, "do", "you", "want"):
		return sentence("Yes, I want " + swapPronouns(words[3:]))
	case hasWords(lw, "shall", "we"), hasWords(lw, "should", "we"):
		return sentence("Yes, let's " + swapPronouns(words[2:]))
	case len(lw) >= 2 && lw[1] == "i" && (lw[0] == "can" || lw[0] == "may" || lw[0] == "shall"):
		return sentence("Yes, please " + swapPronouns(words[2:]))
	case len(lw) >= 2 && lw[1] == "you" && hasAux(lw[0]):
		if aux := auxFirstPerson[lw[0]]; aux != "" {
			return sentence("Yes, I " + aux + " " + swapPronouns(words[2:]))
		}
		return sentence("Yes, I " + swapPronouns(words[2:]))
	case len(lw) >= 2 && (lw[0] == "is" || lw[0] == "are") && subjectPronouns[lw[1]]:
		rest := append([]string(nil), words[2:]...)
		if len(rest) > 0 && strings.EqualFold(rest[0], "anything") {
			rest[0] = "something"
		}
		return sentence("Yes, " + lw[1] + " " + lw[0] + " " + swapPronouns(rest))
	case whWords[lw[0]]:
		return sentence("Let me tell you " + whClause(words, lw))
	}
	return sentence("I'd like to talk about this: " + swapPronouns(words))
}

func isQuestion(text string, lw []string) bool {
	if strings.HasSuffix(text, "?") || whWords[lw[0]] {
		return true
	}
	return len(lw) >= 2 && (hasAux(lw[0]) || lw[0] == "is" || lw[0] == "may" || lw[0] == "shall") &&
		(lw[1] == "you" || lw[1] == "i" || subjectPronouns[lw[1]])
}

func hasAux(w string) bool {
	_, ok := auxFirstPerson[w]
	return ok
}

func hasWords(lw []string, prefix ...string) bool {
	if len(lw) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if lw[i] != p {
			return false
		}
	}
	return true
}

// whClause rewrites "how long have you had it" as "how long I have had it".
func whClause(words, lw []string) string {
	n := 1
	if lw[0] == "how" && len(lw) > 1 && howQuantifiers[lw[1]] {
		n = 2
	}
	head := strings.Join(lw[:n], " ")
	if len(lw) >= n+2 && lw[n+1] == "you" && hasAux(lw[n]) {
		parts := []string{head, "I"}
		if aux := auxFirstPerson[lw[n]]; aux != "" {
			parts = append(parts, aux)
		}
		if rest := swapPronouns(words[n+2:]); rest != "" {
			parts = append(parts, rest)
		}
		return strings.Join(parts, " ")
	}
	return strings.TrimSpace(head + " " + swapPronouns(words[n:]))
}

// swapPronouns flips first and second person so the customer speaks for themself.
func swapPronouns(words []string) string {
	out := make([]string, 0, len(words))
	for i, w := range words {
		core := strings.TrimRightFunc(w, unicode.IsPunct)
		tail := w[len(core):]
		lower := strings.ToLower(core)

		repl, ok := pronounSwaps[lower]
		if !ok {
			out = append(out, w)
			continue
		}
		if lower == "you" && i+1 < len(words) && youSubjectFollowers[strings.ToLower(words[i+1])] {
			repl = "I"
		}
		out = append(out, repl+tail)
	}
	// fix agreement after the swap: "I are" -> "I am", "you am" -> "you are"
	for i := 0; i+1 < len(out); i++ {
		switch {
		case out[i] == "I" && out[i+1] == "are":
			out[i+1] = "am"
		case out[i] == "I" && out[i+1] == "were":
			out[i+1] = "was"
		case out[i] == "you" && out[i+1] == "am":
			out[i+1] = "are"
		}
	}
	return strings.Join(out, " ")
}

func sentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, "?")
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if last, _ := utf8.DecodeLastRuneInString(s); last != '.' && last != '!' {
		s += "."
	}
	return s
}
