package features

// Fixed membership sets used by the extractor. These are part of the engine
// contract: tests pin behavior against them, and the ML feature vector was
// trained with these exact memberships. Order matters for the keyword and
// brand lists because matches are reported in list order.

// suspiciousWords are tokens common in phishing and malware-distribution
// URLs. Brand tokens are skipped when the URL is on the brand's own domain.
var suspiciousWords = []string{
	"login", "signin", "verify", "update", "secure", "account", "bank",
	"free", "gift", "password", "confirm", "suspend", "unusual", "expire",
	"urgent", "immediately", "click", "validate", "authenticate", "credential",
	"paypal", "netflix", "amazon", "apple", "microsoft", "google", "facebook",
	// Pirated-software bait, a common malware vector.
	"crack", "keygen", "serial", "patch", "activator", "loader", "kms",
	"pirate", "warez", "nulled", "cracked", "torrent", "download-free",
	"full-version", "license-key", "product-key", "activation", "bypass",
}

var shorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd", "buff.ly",
	"adf.ly", "bit.do", "mcaf.ee", "su.pr", "yourls.org", "rebrand.ly",
	"kutt.it", "tinyplease.com", "shorturl.at", "tiny.cc", "bc.vc", "j.mp",
	"v.gd", "x.co", "u.to", "cutt.ly", "rb.gy", "clck.ru", "shorturl.asia",
	"tinu.be", "hyperurl.co", "urlz.fr", "link.zip", "short.io", "soo.gd",
	"clickmeter.com", "s.id", "rotf.lol", "surl.li", "shortcm.li",
}

var pasteServices = []string{
	"pastebin.com", "paste.ee", "pastecode.io", "dpaste.org", "paste.mozilla.org",
	"hastebin.com", "ghostbin.com", "paste2.org", "pastebin.pl", "paste.rs",
	"rentry.co", "rentry.org", "privatebin.net", "controlc.com", "justpaste.it",
}

// hostingPlatforms are multi-tenant domains where anyone can publish content.
// A trusted rank on the platform domain says nothing about a given page.
var hostingPlatforms = []string{
	"appspot.com",
	"github.io",
	"githubusercontent.com",
	"gitlab.io",
	"netlify.app",
	"vercel.app",
	"herokuapp.com",
	"firebaseapp.com",
	"web.app",
	"pages.dev",
	"workers.dev",
	"azurewebsites.net",
	"cloudfront.net",
	"s3.amazonaws.com",
	"blob.core.windows.net",
	"blogspot.com",
	"wordpress.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"glitch.me",
	"repl.co",
	"surge.sh",
	"render.com",
	"fly.dev",
	"deno.dev",
	"ngrok.io",
	"trycloudflare.com",
	"r2.dev",
}

var riskyTLDs = map[string]bool{
	"xyz": true, "top": true, "club": true, "online": true, "site": true,
	"website": true, "space": true, "tech": true, "info": true, "biz": true,
	"cc": true, "tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"pw": true, "ws": true, "buzz": true, "surf": true, "icu": true,
	"monster": true, "cam": true, "work": true, "click": true, "link": true,
}

// knownBrands lists frequently impersonated brands, checked in order; the
// first token found in the URL is the reported brand.
var knownBrands = []string{
	"paypal", "amazon", "apple", "microsoft", "google", "facebook", "netflix",
	"instagram", "whatsapp", "twitter", "linkedin", "dropbox", "spotify",
	"chase", "wellsfargo", "bankofamerica", "citibank", "usbank", "capitalone",
	"americanexpress", "ebay", "walmart", "target",
	"bestbuy", "costco", "homedepot", "adobe", "zoom", "slack", "github",
	"youtube", "tiktok", "reddit", "twitch", "discord", "telegram",
}

// canonicalDomains maps each brand to its single canonical domain. Brands
// without an entry default to "<brand>.com".
var canonicalDomains = map[string]string{
	"paypal":        "paypal.com",
	"amazon":        "amazon.com",
	"apple":         "apple.com",
	"microsoft":     "microsoft.com",
	"google":        "google.com",
	"facebook":      "facebook.com",
	"netflix":       "netflix.com",
	"instagram":     "instagram.com",
	"whatsapp":      "whatsapp.com",
	"twitter":       "twitter.com",
	"linkedin":      "linkedin.com",
	"dropbox":       "dropbox.com",
	"spotify":       "spotify.com",
	"chase":         "chase.com",
	"wellsfargo":    "wellsfargo.com",
	"bankofamerica": "bankofamerica.com",
	"ebay":          "ebay.com",
	"walmart":       "walmart.com",
	"adobe":         "adobe.com",
	"zoom":          "zoom.us",
	"slack":         "slack.com",
	"github":        "github.com",
	"youtube":       "youtube.com",
	"tiktok":        "tiktok.com",
	"reddit":        "reddit.com",
	"twitch":        "twitch.tv",
	"discord":       "discord.com",
	"telegram":      "telegram.org",
}

// trustedDomains is the built-in allow-list used when the remote reputation
// list is unreachable: roughly the global top sites, with an approximate
// rank.
var trustedDomains = map[string]int{
	"youtube.com":      1,
	"facebook.com":     2,
	"twitter.com":      3,
	"instagram.com":    4,
	"tiktok.com":       5,
	"linkedin.com":     6,
	"reddit.com":       7,
	"pinterest.com":    8,
	"twitch.tv":        9,
	"discord.com":      10,
	"google.com":       11,
	"bing.com":         12,
	"yahoo.com":        13,
	"duckduckgo.com":   14,
	"amazon.com":       15,
	"ebay.com":         16,
	"walmart.com":      17,
	"aliexpress.com":   18,
	"mercadolibre.com": 19,
	"microsoft.com":    20,
	"apple.com":        21,
	"netflix.com":      22,
	"spotify.com":      23,
	"paypal.com":       24,
	"dropbox.com":      25,
	"github.com":       26,
	"stackoverflow.com": 27,
	"zoom.us":          28,
	"slack.com":        29,
	"wikipedia.org":    30,
	"bbc.com":          31,
	"cnn.com":          32,
	"nytimes.com":      33,
	"whatsapp.com":     34,
	"telegram.org":     35,
	"messenger.com":    36,
	"gmail.com":        37,
	"outlook.com":      38,
	"live.com":         39,
	"hotmail.com":      40,
}

// TrustedDomainRank returns the approximate rank of a built-in trusted
// domain, checking the exact domain and then parent domains. Zero means not
// trusted.
func TrustedDomainRank(host string) int {
	if rank, ok := trustedDomains[host]; ok {
		return rank
	}
	for trusted, rank := range trustedDomains {
		if hasDomainSuffix(host, trusted) {
			return rank
		}
	}
	return 0
}
