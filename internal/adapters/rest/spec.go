package rest

import (
	"fmt"
	"imagio/internal/core/domain"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// parseSpec builds a transform spec from query parameters:
//
//	w, h    target dimensions (one may be omitted)
//	fit     contain | cover | fill
//	crop    x,y,w,h in source pixels
//	format  jpeg | png | gif
//	q       lossy quality 1-100
//
// Parameter order in the URL is irrelevant: everything lands in the one
// normalized spec, so equivalent requests share a cache key.
func parseSpec(c *gin.Context) (domain.TransformSpec, error) {
	var spec domain.TransformSpec

	if raw, ok := c.GetQuery("crop"); ok {
		rect, err := parseCrop(raw)
		if err != nil {
			return spec, err
		}
		spec.Crop = rect
	}

	w, err := queryInt(c, "w")
	if err != nil {
		return spec, err
	}
	h, err := queryInt(c, "h")
	if err != nil {
		return spec, err
	}
	if w > 0 || h > 0 {
		spec.Resize = &domain.Resize{W: w, H: h, Fit: domain.Fit(c.Query("fit"))}
	} else if c.Query("fit") != "" {
		return spec, fmt.Errorf("fit given without dimensions")
	}

	if format := c.Query("format"); format != "" {
		spec.Format = strings.ToLower(format)
		if spec.Format == "jpg" {
			spec.Format = "jpeg"
		}
	}

	quality, err := queryInt(c, "q")
	if err != nil {
		return spec, err
	}
	spec.Quality = quality

	return spec, spec.Validate()
}

func parseCrop(raw string) (*domain.Rect, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("crop wants x,y,w,h, got %q", raw)
	}

	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("crop component %q is not a number", part)
		}
		values[i] = v
	}

	return &domain.Rect{X: values[0], Y: values[1], W: values[2], H: values[3]}, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return v, nil
}
