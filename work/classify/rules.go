package classify

import (
	"strings"

	"github.com/grafana/regexp"

	"iptv-catalog/work/types"
)

// Keyword vocabularies for the default rule table. Tokens are matched as
// lower-case substrings, except that short alphanumeric tokens (and bare
// years) get word boundaries so "ts" cannot fire inside "sports".

// Explicit movie words. These carry the top priority so "Filme X S01E01"
// still lands in the movie catalog despite its episode token.
var movieExplicitTokens = []string{
	"filme", "movie", "cinema", "lançamento", "lancamento",
}

// Season/episode and serial-format tokens.
var seriesTokens = []string{
	"serie", "série", "séries",
	"temporada", "season", "temp",
	"episodio", "episódio", "episode", "ep ", " ep",
	"sitcom", "miniserie", "minissérie",
}

// Season/episode codes like "S01E01", "E03" or "T02". Anchored at a word
// boundary on the left only, so the "e01" in "s01e01" is still reachable
// through the combined pattern while "code01" is not.
var seriesCodePatterns = []string{
	`\bs0[1-7]`,
	`\be0[1-7]`,
	`\bt0[1-3]\b`,
	`s\d{1,2}e\d{1,2}`,
	`\d{1,2}x\d{2}\b`,
}

// Broadcaster brands and live-format markers. Matching any of these in the
// name or group pins the entry to the live catalog even when a VOD marker
// also matched.
var liveTokens = []string{
	// brazilian broadcast and cable brands
	"globo", "sbt", "record", "band", "rede tv", "cultura",
	"tv brasil", "tv senado", "tv câmara", "tv camara", "tv justiça", "tv justica",
	"multishow", "gnt", "sportv", "telecine", "premiere", "combate",
	// international networks
	"hbo", "fox", "universal", "sony", "warner", "paramount",
	"espn", "cnn", "bbc", "band news", "globo news",
	"mtv", "vh1", "bis",
	"discovery", "history channel", "natgeo", "nat geo", "animal planet",
	"investigation", "cartoon network", "nickelodeon", "disney channel",
	// live-format markers
	"ao vivo", "live", "canal", "tv ", " tv",
	"broadcasting", "transmissão", "transmissao", "24h", "24 horas",
}

// Generic VOD indicators split by the field they apply to.
var (
	vodURLTokens = []string{
		"/movie/", "/movies/", "/filme/", "/filmes/", "/vod/", "/vods/",
		"movie", "filme",
	}

	vodGroupTokens = []string{
		"filmes", "filme", "movies", "movie", "cinema",
		"lançamentos", "lancamentos", "releases", "estreia",
		// bare release years
		"2019", "2020", "2021", "2022", "2023", "2024", "2025",
		// genre labels common in playlist group titles
		"ação", "acao", "action", "aventura", "adventure",
		"comédia", "comedia", "comedy", "drama",
		"suspense", "thriller", "terror", "horror",
		"romance", "romântico", "romantico",
		"ficção", "ficcao", "sci-fi", "fantasia", "fantasy",
		"animação", "animacao", "animation",
		"documentário", "documentario", "documentary",
		// quality and language markers
		"hd", "full hd", "4k", "uhd", "bluray", "blu-ray",
		"dvdrip", "webrip", "hdtv", "cam", "ts",
		"dublado", "legendado", "dual", "nacional",
	}

	vodNameTokens = []string{
		// bracketed or dashed release years
		"(2019)", "(2020)", "(2021)", "(2022)", "(2023)", "(2024)", "(2025)",
		"[2019]", "[2020]", "[2021]", "[2022]", "[2023]", "[2024]", "[2025]",
		"- 2019", "- 2020", "- 2021", "- 2022", "- 2023", "- 2024", "- 2025",
		// quality and language markers
		"hd", "full hd", "4k", "uhd", "bluray", "blu-ray",
		"dvdrip", "webrip", "hdtv", "cam", "ts", "r5",
		"dublado", "legendado", "dual audio", "nacional",
		// multi-part markers
		"vol.", "part", "parte", "disc", "disco",
	}
)

// DefaultRules builds the stock rule table from the token vocabularies.
// Callers get a fresh slice and may append or replace rules before handing
// the table to NewWithRules.
func DefaultRules() []Rule {
	var rules []Rule

	add := func(tokens []string, fields []Field, kind types.Kind, priority int) {
		for _, tok := range tokens {
			rules = append(rules, Rule{
				Pattern:  tokenPattern(tok),
				Fields:   fields,
				Kind:     kind,
				Priority: priority,
			})
		}
	}

	nameAndGroup := []Field{FieldName, FieldGroup}

	add(movieExplicitTokens, nameAndGroup, types.KindMovie, PriorityMovieExplicit)
	add(seriesTokens, nameAndGroup, types.KindSeries, PrioritySeries)
	for _, pat := range seriesCodePatterns {
		rules = append(rules, Rule{
			Pattern:  pat,
			Fields:   nameAndGroup,
			Kind:     types.KindSeries,
			Priority: PrioritySeries,
		})
	}
	add(liveTokens, nameAndGroup, types.KindLive, PriorityLive)
	add(vodURLTokens, []Field{FieldURL}, types.KindMovie, PriorityVOD)
	add(vodGroupTokens, []Field{FieldGroup}, types.KindMovie, PriorityVOD)
	add(vodNameTokens, []Field{FieldName}, types.KindMovie, PriorityVOD)

	return rules
}

// tokenPattern turns a vocabulary token into a regexp pattern. Tokens of up
// to four letters or digits are anchored on word boundaries; everything else
// matches as a plain substring.
func tokenPattern(tok string) string {
	quoted := regexp.QuoteMeta(tok)
	if len(tok) <= 4 && isWordToken(tok) {
		return `\b` + quoted + `\b`
	}
	return quoted
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789", r) {
			return false
		}
	}
	return len(tok) > 0
}
