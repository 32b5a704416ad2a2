package taxonomy

import (
	"strings"
	"time"

	"golang.org/x/text/transform"
)

// TaggerVersion is recorded in provenance so stale auto-tags can be found
// and regenerated when the rules change.
const TaggerVersion = "rules-2"

// Provenance records how a recipe's structured tags were produced.
type Provenance struct {
	Method   string    `json:"method" bson:"method"`
	Version  string    `json:"version" bson:"version"`
	TaggedAt time.Time `json:"tagged_at" bson:"tagged_at"`
	Fields   []string  `json:"fields" bson:"fields"`
}

// Tags are the structured tag arrays stored on a recipe.
type Tags struct {
	Dietary    []string `json:"dietary_tags" bson:"dietary_tags"`
	Allergen   []string `json:"allergen_tags" bson:"allergen_tags"`
	Flavour    []string `json:"flavour_tags" bson:"flavour_tags"`
	Technique  []string `json:"technique_tags" bson:"technique_tags"`
	Ingredient []string `json:"ingredient_tags" bson:"ingredient_tags"`
}

// Input is what the tagger reads from a recipe.
type Input struct {
	// Ingredients are ingredient names or raw lines.
	Ingredients []string
	Steps       []string
	// Manual tags are kept even when no rule produces them.
	Manual Tags
}

type rule struct {
	tag    string
	terms  []string
	unless []string
}

var allergenRules = []rule{
	{tag: "gluten", terms: []string{"flour", "bread", "breadcrumb", "pasta", "spaghetti", "penne", "macaroni", "noodle", "wheat", "barley", "rye", "couscous", "semolina", "tortilla", "pita", "beer", "panko"},
		unless: []string{"gluten free", "rice flour", "almond flour", "coconut flour", "corn tortilla", "rice noodle", "rice noodles"}},
	{tag: "dairy", terms: []string{"milk", "butter", "cheese", "cream", "yogurt", "yoghurt", "parmesan", "mozzarella", "cheddar", "feta", "ricotta", "ghee", "buttermilk", "mascarpone", "creme fraiche"},
		unless: []string{"coconut milk", "almond milk", "oat milk", "soy milk", "peanut butter", "almond butter", "cocoa butter", "cream of tartar", "coconut cream", "vegan butter", "vegan cheese"}},
	{tag: "egg", terms: []string{"egg", "mayonnaise", "mayo", "meringue"}},
	{tag: "peanut", terms: []string{"peanut"}},
	{tag: "tree-nut", terms: []string{"almond", "walnut", "cashew", "pecan", "hazelnut", "pistachio", "macadamia", "pine nut", "brazil nut"}},
	{tag: "soy", terms: []string{"soy", "soya", "tofu", "tempeh", "miso", "edamame", "tamari"}},
	{tag: "fish", terms: []string{"fish", "salmon", "tuna", "cod", "anchovy", "anchovies", "sardine", "trout", "halibut", "haddock", "mackerel", "tilapia"}},
	{tag: "shellfish", terms: []string{"shrimp", "prawn", "crab", "lobster", "crayfish", "langoustine"}},
	{tag: "sesame", terms: []string{"sesame", "tahini"}},
	{tag: "mustard", terms: []string{"mustard"}},
	{tag: "celery", terms: []string{"celery", "celeriac"}},
	{tag: "sulphites", terms: []string{"wine"}, unless: []string{"wine vinegar"}},
	{tag: "lupin", terms: []string{"lupin"}},
	{tag: "molluscs", terms: []string{"mussel", "clam", "oyster", "squid", "octopus", "scallop", "calamari"},
		unless: []string{"oyster sauce", "oyster mushroom", "oyster mushrooms"}},
}

var meatRule = rule{
	tag:    "meat",
	terms:  []string{"chicken", "beef", "pork", "lamb", "bacon", "ham", "sausage", "turkey", "duck", "veal", "prosciutto", "pancetta", "chorizo", "salami", "steak", "venison", "lard", "gelatin", "mince", "meat"},
	unless: []string{"vegan sausage", "plant based meat", "vegetable stock"},
}

var honeyRule = rule{tag: "honey", terms: []string{"honey"}}

var flavourRules = []rule{
	{tag: "spicy", terms: []string{"chili", "chilli", "chile", "jalapeno", "cayenne", "sriracha", "habanero", "hot sauce", "harissa", "red pepper flakes", "gochujang", "chili flakes"}},
	{tag: "smoky", terms: []string{"smoked", "chipotle", "liquid smoke"}},
	{tag: "sweet", terms: []string{"sugar", "honey", "maple", "syrup", "molasses", "caramel", "chocolate"}},
	{tag: "sour", terms: []string{"tamarind", "sumac", "sour cherry"}},
	{tag: "salty", terms: []string{"capers", "olive", "anchovy", "anchovies", "feta"}, unless: []string{"olive oil"}},
	{tag: "umami", terms: []string{"soy sauce", "parmesan", "mushroom", "miso", "fish sauce", "worcestershire", "tomato paste", "nori", "kombu"}},
	{tag: "bitter", terms: []string{"radicchio", "endive", "espresso", "dark chocolate"}},
	{tag: "tangy", terms: []string{"vinegar", "balsamic", "buttermilk"}},
	{tag: "herby", terms: []string{"basil", "parsley", "cilantro", "dill", "mint", "thyme", "rosemary", "oregano", "tarragon", "chives", "sage"}},
	{tag: "citrusy", terms: []string{"lemon", "lime", "orange", "grapefruit", "yuzu", "zest"}},
	{tag: "rich", terms: []string{"heavy cream", "double cream", "mascarpone"}},
}

var techniqueRules = []rule{
	{tag: "bake", terms: []string{"bake", "baked", "baking"}},
	{tag: "roast", terms: []string{"roast", "roasted", "roasting"}},
	{tag: "grill", terms: []string{"grill", "grilled", "grilling", "barbecue", "bbq"}},
	{tag: "deep-fry", terms: []string{"deep fry", "deep fried", "deep frying"}},
	{tag: "stir-fry", terms: []string{"stir fry", "stir fried", "stir frying"}},
	{tag: "fry", terms: []string{"fry", "fried", "frying"},
		unless: []string{"deep fry", "deep fried", "deep frying", "stir fry", "stir fried", "stir frying"}},
	{tag: "saute", terms: []string{"saute", "sauteed", "sauteing", "sautee"}},
	{tag: "steam", terms: []string{"steam", "steamed", "steaming", "steamer"}},
	{tag: "boil", terms: []string{"boil", "boiled", "boiling"}},
	{tag: "simmer", terms: []string{"simmer", "simmered", "simmering"}},
	{tag: "braise", terms: []string{"braise", "braised", "braising"}},
	{tag: "poach", terms: []string{"poach", "poached", "poaching"}},
	{tag: "slow-cook", terms: []string{"slow cooker", "slow cook", "crock pot", "crockpot"}},
	{tag: "pressure-cook", terms: []string{"pressure cooker", "pressure cook", "instant pot"}},
	{tag: "blend", terms: []string{"blend", "blender", "blended", "food processor", "puree"}},
	{tag: "ferment", terms: []string{"ferment", "fermented", "fermenting"}},
	{tag: "marinate", terms: []string{"marinate", "marinated", "marinade", "marinating"}},
}

// Tagger derives structured tags from a recipe's ingredients and steps.
type Tagger struct {
	Version string
	Now     func() time.Time
}

// NewTagger returns a Tagger stamped with TaggerVersion.
func NewTagger() *Tagger {
	return &Tagger{Version: TaggerVersion, Now: time.Now}
}

// Tag merges rule output with the manual tags and reports which fields the
// rules contributed to.
func (t *Tagger) Tag(in Input) (Tags, Provenance) {
	ingText := normalizeText(strings.Join(in.Ingredients, " | "))
	stepText := normalizeText(strings.Join(in.Steps, " | "))

	var auto Tags
	for _, ing := range in.Ingredients {
		if c := CanonicalIngredient(ing); c != "" {
			auto.Ingredient = append(auto.Ingredient, c)
		}
	}
	auto.Allergen = matchRules(allergenRules, ingText)
	auto.Flavour = matchRules(flavourRules, ingText)
	auto.Technique = matchRules(techniqueRules, stepText)
	if len(in.Ingredients) > 0 {
		auto.Dietary = dietaryFor(ingText, auto.Allergen)
	}

	manual := Tags{
		Dietary:    Dietary.Filter(in.Manual.Dietary),
		Allergen:   Allergen.Filter(in.Manual.Allergen),
		Flavour:    Flavour.Filter(in.Manual.Flavour),
		Technique:  Technique.Filter(in.Manual.Technique),
		Ingredient: kebabOnly(in.Manual.Ingredient),
	}

	out := Tags{
		Allergen:   Merge(manual.Allergen, auto.Allergen...),
		Flavour:    Merge(manual.Flavour, auto.Flavour...),
		Technique:  Merge(manual.Technique, auto.Technique...),
		Ingredient: Merge(manual.Ingredient, auto.Ingredient...),
	}
	// A manually declared allergen rules out the matching derived claim.
	out.Dietary = Merge(manual.Dietary, dropConflicts(auto.Dietary, out.Allergen)...)

	prov := Provenance{
		Method:   "rules",
		Version:  t.Version,
		TaggedAt: t.now().UTC(),
		Fields:   contributedFields(manual, out),
	}
	return out, prov
}

func (t *Tagger) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func dietaryFor(ingText string, allergens []string) []string {
	has := make(map[string]bool, len(allergens))
	for _, a := range allergens {
		has[a] = true
	}
	meat := matches(meatRule, ingText)
	seafood := has["fish"] || has["shellfish"] || has["molluscs"]
	honey := matches(honeyRule, ingText)

	var out []string
	if !meat && !seafood && !has["dairy"] && !has["egg"] && !honey {
		out = append(out, "vegan")
	}
	if !meat && !seafood {
		out = append(out, "vegetarian")
	}
	if !meat && seafood {
		out = append(out, "pescatarian")
	}
	if !has["gluten"] {
		out = append(out, "gluten-free")
	}
	if !has["dairy"] {
		out = append(out, "dairy-free")
	}
	if !has["peanut"] && !has["tree-nut"] {
		out = append(out, "nut-free")
	}
	if !has["egg"] {
		out = append(out, "egg-free")
	}
	return out
}

var freeConflicts = map[string][]string{
	"gluten-free": {"gluten"},
	"dairy-free":  {"dairy"},
	"egg-free":    {"egg"},
	"nut-free":    {"peanut", "tree-nut"},
	"vegan":       {"dairy", "egg", "fish", "shellfish", "molluscs"},
	"vegetarian":  {"fish", "shellfish", "molluscs"},
}

func dropConflicts(dietary, allergens []string) []string {
	present := make(map[string]bool, len(allergens))
	for _, a := range allergens {
		present[a] = true
	}
	out := make([]string, 0, len(dietary))
	for _, d := range dietary {
		conflict := false
		for _, a := range freeConflicts[d] {
			if present[a] {
				conflict = true
				break
			}
		}
		if !conflict {
			out = append(out, d)
		}
	}
	return out
}

func contributedFields(manual, out Tags) []string {
	fields := []string{}
	pairs := []struct {
		name      string
		had, have []string
	}{
		{"dietary_tags", manual.Dietary, out.Dietary},
		{"allergen_tags", manual.Allergen, out.Allergen},
		{"flavour_tags", manual.Flavour, out.Flavour},
		{"technique_tags", manual.Technique, out.Technique},
		{"ingredient_tags", manual.Ingredient, out.Ingredient},
	}
	for _, p := range pairs {
		if len(p.have) > len(p.had) {
			fields = append(fields, p.name)
		}
	}
	return fields
}

func kebabOnly(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := Slugify(t); s != "" {
			out = append(out, s)
		}
	}
	return Merge(nil, out...)
}

func matchRules(rules []rule, text string) []string {
	var out []string
	for _, r := range rules {
		if matches(r, text) {
			out = append(out, r.tag)
		}
	}
	return out
}

func matches(r rule, text string) bool {
	for _, u := range r.unless {
		text = strings.ReplaceAll(text, " "+u+" ", " ")
	}
	for _, term := range r.terms {
		if strings.Contains(text, " "+term+" ") ||
			strings.Contains(text, " "+term+"s ") ||
			strings.Contains(text, " "+term+"es ") {
			return true
		}
	}
	return false
}

// normalizeText folds accents, lower-cases and reduces s to space-separated
// alphanumeric words padded with a leading and trailing space.
func normalizeText(s string) string {
	folded, _, err := transform.String(stripAccent, s)
	if err != nil {
		folded = s
	}
	words := strings.Fields(nonAlnumRe.ReplaceAllString(strings.ToLower(folded), " "))
	return " " + strings.Join(words, " ") + " "
}
