package leaderboard

import "fmt"

// Action is a navigation affordance.
type Action string

const (
	First    Action = "pagefirst"
	Previous Action = "pageprevious"
	Count    Action = "pagecount"
	Next     Action = "pagenext"
	Last     Action = "pagelast"
)

// ParseAction maps an affordance id to an Action.
func ParseAction(customID string) (Action, error) {
	switch a := Action(customID); a {
	case First, Previous, Count, Next, Last:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// PageCount returns ceil(total/size), at least 1 so an empty view still
// renders one page.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Clamp bounds index to [0, PageCount-1].
func Clamp(index, total, size int) int {
	last := PageCount(total, size) - 1
	switch {
	case index < 0:
		return 0
	case index > last:
		return last
	default:
		return index
	}
}

// Bounds returns the half-open item range [start, end) of page index.
func Bounds(index, total, size int) (start, end int) {
	index = Clamp(index, total, size)
	start = index * size
	end = min(start+size, total)
	if start > end {
		start = end
	}
	return start, end
}

// Apply moves index by action.
func Apply(action Action, index, pages int) int {
	switch action {
	case First:
		return 0
	case Previous:
		if index > 0 {
			return index - 1
		}
	case Next:
		if index < pages-1 {
			return index + 1
		}
	case Last:
		return pages - 1
	}
	return index
}

// Controls is the state of the navigation row for a page.
type Controls struct {
	FirstDisabled    bool
	PreviousDisabled bool
	NextDisabled     bool
	LastDisabled     bool
	Label            string
}

// ControlsFor returns the navigation row for page index of pages.
func ControlsFor(index, pages int) Controls {
	return Controls{
		FirstDisabled:    index == 0,
		PreviousDisabled: index == 0,
		NextDisabled:     index >= pages-1,
		LastDisabled:     index >= pages-1,
		Label:            fmt.Sprintf("%d/%d", index+1, pages),
	}
}
