// internal/category/stopwords.go
package category

// Closed list of words that never identify a product type on their own:
// function words, quantities, sizes, colors, marketing noise,
// demographics, and generic adjectives common in listing titles.
var baseStopwords = map[string]bool{
	// articles, conjunctions, prepositions, auxiliaries
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "been": true, "be": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "need": true,
	// pronouns and question words
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "you": true, "he": true, "she": true, "we": true,
	"they": true, "what": true, "which": true, "who": true, "whom": true,
	"where": true, "when": true, "why": true, "how": true, "all": true,
	"each": true, "every": true, "both": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "no": true,
	"nor": true, "not": true, "only": true, "own": true, "same": true,
	"so": true, "than": true, "too": true, "very": true, "just": true,
	"also": true, "now": true, "new": true, "used": true,
	// quantities
	"one": true, "two": true, "three": true, "four": true, "five": true,
	"six": true, "seven": true, "eight": true, "nine": true, "ten": true,
	"pack": true, "pcs": true, "piece": true, "pieces": true, "set": true,
	"sets": true, "pair": true, "pairs": true, "person": true, "people": true,
	"man": true, "seat": true, "seats": true, "count": true, "qty": true,
	// sizes and units
	"size": true, "large": true, "small": true, "medium": true, "xl": true,
	"xxl": true, "xs": true, "l": true, "m": true, "s": true, "inch": true,
	"inches": true, "ft": true, "feet": true, "cm": true, "mm": true,
	"lb": true, "lbs": true, "oz": true, "kg": true, "g": true,
	"gallon": true, "quart": true, "liter": true, "litre": true, "ml": true,
	// colors
	"black": true, "white": true, "red": true, "blue": true, "green": true,
	"yellow": true, "pink": true, "purple": true, "gray": true, "grey": true,
	"brown": true, "orange": true, "silver": true, "gold": true,
	"beige": true, "navy": true, "color": true, "colors": true,
	"multi": true, "multicolor": true,
	// marketing noise
	"amazon": true, "brand": true, "best": true, "top": true, "premium": true,
	"quality": true, "pro": true, "deluxe": true, "ultra": true,
	"super": true, "extra": true, "plus": true, "max": true, "mini": true,
	"lite": true, "official": true, "original": true, "genuine": true,
	"authentic": true, "upgraded": true, "improved": true,
	// demographics
	"men": true, "women": true, "kids": true, "adult": true, "adults": true,
	"boy": true, "girl": true, "baby": true, "boys": true, "girls": true,
	"babies": true, "children": true, "child": true, "toddler": true,
	"teen": true, "mens": true, "womens": true, "unisex": true,
	"family": true,
	// generic adjectives
	"portable": true, "foldable": true, "folding": true, "adjustable": true,
	"waterproof": true, "lightweight": true, "heavy": true, "duty": true,
	"durable": true, "sturdy": true, "strong": true, "soft": true,
	"hard": true, "thick": true, "thin": true, "wide": true, "narrow": true,
	"long": true, "short": true, "indoor": true, "outdoor": true,
	"home": true, "office": true, "travel": true, "car": true, "garden": true,
}
