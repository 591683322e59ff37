package crawl

import (
	"context"

	"github.com/fwojciec/siterag"
	"golang.org/x/sync/errgroup"
)

// ContentDiffers compares content extracted from lightweight and rendered
// HTML of the same page. It returns true if the rendered content is more
// than 50% longer, which means scripts add meaningful content. Extraction
// errors also return true.
func ContentDiffers(lightHTML, renderedHTML string, extractor siterag.Extractor) bool {
	light, err := extractor.Extract(lightHTML)
	if err != nil {
		return true
	}
	rendered, err := extractor.Extract(renderedHTML)
	if err != nil {
		return true
	}

	lightLen := len(light.ContentHTML)
	renderedLen := len(rendered.ContentHTML)
	if lightLen == 0 {
		return renderedLen > 0
	}
	return float64(renderedLen) > float64(lightLen)*1.5
}

// ChooseStrategy fetches url with both fetchers and picks the strategy for
// the whole job. A lightweight fetch failure selects the rendered strategy;
// a rendered failure selects lightweight.
func ChooseStrategy(ctx context.Context, url string, light, rendered siterag.Fetcher, extractor siterag.Extractor) (siterag.Strategy, error) {
	var lightRes, renderedRes *siterag.FetchResult
	var lightErr, renderedErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lightRes, lightErr = light.Fetch(gctx, url)
		return nil
	})
	g.Go(func() error {
		renderedRes, renderedErr = rendered.Fetch(gctx, url)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case lightErr != nil && renderedErr != nil:
		return "", lightErr
	case lightErr != nil:
		return siterag.StrategyRendered, nil
	case renderedErr != nil:
		return siterag.StrategyLightweight, nil
	}

	if ContentDiffers(lightRes.HTML, renderedRes.HTML, extractor) {
		return siterag.StrategyRendered, nil
	}
	return siterag.StrategyLightweight, nil
}
