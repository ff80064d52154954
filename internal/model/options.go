package model

// Options are the caller-supplied knobs on an optimization request.
// Zero values mean "use server defaults".
type Options struct {
	// Language the optimized resume should be written in.
	Language string `json:"language,omitempty"`
	// PagePolicy selects what happens when the generated layout
	// overflows one page: "truncate" (default) or "fail".
	PagePolicy string `json:"page_policy,omitempty"`
}
