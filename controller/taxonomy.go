package controller

import (
	"net/http"

	"flavornet/cache"
	"flavornet/logging"
	"flavornet/store"
	"flavornet/taxonomy"

	"github.com/gin-gonic/gin"
)

// GetTaxonomy lists every vocabulary with its usage counts.
func (h *Controller) GetTaxonomy(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	log := logging.FromContext(ctx)

	var facets map[string][]store.FacetCount
	found, err := h.Cache.Get(ctx, cache.FacetsKey(), &facets)
	if err != nil {
		log.Warn().Err(err).Msg("cache read failed")
	}
	if !found {
		facets, err = h.Recipes.Facets(ctx)
		if err != nil {
			fail(c, err, "Failed to count tags")
			return
		}
		if err := h.Cache.Set(ctx, cache.FacetsKey(), facets); err != nil {
			log.Warn().Err(err).Msg("cache write failed")
		}
	}

	vocabularies := make(map[string][]string)
	for _, v := range taxonomy.Vocabularies() {
		vocabularies[v.Name] = v.Terms()
	}
	c.JSON(http.StatusOK, gin.H{"vocabularies": vocabularies, "facets": facets})
}
