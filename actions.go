package main

// ActionDefinition defines an action with its default keybindings and description
type ActionDefinition struct {
	Name        string
	Keys        []string
	Description string
}

// actionDefinitions contains all action definitions with default keybindings and descriptions
var actionDefinitions = []ActionDefinition{
	{"exit", []string{"Escape", "KeyQ"}, "Quit"},
	{"help", []string{"Shift+Slash"}, "Show/hide help"},
	{"info", []string{"KeyI"}, "Show/hide page indicator"},
	{"next", []string{"Space", "KeyN", "PageDown"}, "Next page (or spread in two-page mode)"},
	{"previous", []string{"Backspace", "KeyP", "PageUp"}, "Previous page (or spread in two-page mode)"},
	{"page_left", []string{"ArrowLeft"}, "Page on the left (previous, or next in manga mode)"},
	{"page_right", []string{"ArrowRight"}, "Page on the right (next, or previous in manga mode)"},
	{"next_single", []string{"Shift+Space", "Shift+KeyN"}, "Single page forward"},
	{"previous_single", []string{"Shift+Backspace", "Shift+KeyP"}, "Single page backward"},
	{"jump_first", []string{"Home"}, "Jump to first page"},
	{"jump_last", []string{"End"}, "Jump to last page"},
	{"page_input", []string{"KeyG"}, "Go to page (enter page number)"},

	{"toggle_two_page", []string{"KeyB"}, "Toggle two-page spread"},
	{"toggle_manga", []string{"KeyM", "Shift+KeyB"}, "Toggle manga mode (right to left)"},
	{"toggle_smart_cover", []string{"KeyC"}, "Toggle cover shown alone in spreads"},
	{"toggle_smart_split", []string{"KeyW"}, "Toggle splitting of wide pages"},
	{"cycle_sort", []string{"Shift+KeyS"}, "Cycle sort method (Natural/Simple/Entry)"},
	{"prefetch_more", []string{"Period"}, "Prefetch more pages ahead"},
	{"prefetch_less", []string{"Comma"}, "Prefetch fewer pages ahead"},

	{"toggle_bookmark", []string{"KeyK"}, "Bookmark current page"},
	{"next_bookmark", []string{"KeyJ"}, "Jump to next bookmark"},

	{"fullscreen", []string{"Enter"}, "Toggle fullscreen"},
	{"cycle_fit", []string{"KeyF"}, "Cycle fit mode (best/width/height/original)"},
	{"zoom_in", []string{"Equal", "Shift+Equal"}, "Zoom in"},
	{"zoom_out", []string{"Minus"}, "Zoom out"},
	{"zoom_reset", []string{"Key0"}, "Reset zoom"},
	{"pan_up", []string{"ArrowUp"}, "Pan up"},
	{"pan_down", []string{"ArrowDown"}, "Pan down"},
}

// ExecuteAction runs the named action. It returns false for unknown actions.
func ExecuteAction(action string, inputActions InputActions, inputState InputState) bool {
	switch action {
	case "exit":
		inputActions.Exit()
	case "help":
		inputActions.ToggleHelp()
	case "info":
		inputActions.ToggleInfo()
	case "next":
		inputActions.NavigateNext()
	case "previous":
		inputActions.NavigatePrevious()
	case "page_left":
		if inputState.IsManga() {
			inputActions.NavigateNext()
		} else {
			inputActions.NavigatePrevious()
		}
	case "page_right":
		if inputState.IsManga() {
			inputActions.NavigatePrevious()
		} else {
			inputActions.NavigateNext()
		}
	case "next_single":
		inputActions.NavigateSingle(1)
	case "previous_single":
		inputActions.NavigateSingle(-1)
	case "jump_first":
		inputActions.JumpToPage(1)
	case "jump_last":
		totalPages := inputActions.GetTotalPagesCount()
		if totalPages > 0 {
			inputActions.JumpToPage(totalPages)
		}
	case "page_input":
		if !inputState.IsInPageInputMode() {
			inputActions.EnterPageInputMode()
		}
	case "toggle_two_page":
		inputActions.ToggleTwoPage()
	case "toggle_manga":
		inputActions.ToggleManga()
	case "toggle_smart_cover":
		inputActions.ToggleSmartCover()
	case "toggle_smart_split":
		inputActions.ToggleSmartSplit()
	case "cycle_sort":
		inputActions.CycleSortMethod()
	case "prefetch_more":
		inputActions.AdjustPrefetch(1)
	case "prefetch_less":
		inputActions.AdjustPrefetch(-1)
	case "toggle_bookmark":
		inputActions.ToggleBookmark()
	case "next_bookmark":
		inputActions.NextBookmark()
	case "fullscreen":
		inputActions.ToggleFullscreen()
	case "cycle_fit":
		inputActions.CycleFitMode()
	case "zoom_in":
		inputActions.ZoomIn()
	case "zoom_out":
		inputActions.ZoomOut()
	case "zoom_reset":
		inputActions.ZoomReset()
	case "pan_up":
		inputActions.PanByDelta(0, panStep)
	case "pan_down":
		inputActions.PanByDelta(0, -panStep)
	default:
		return false
	}

	return true
}

// GetActionDescriptions returns a map of action names to their descriptions
func GetActionDescriptions() map[string]string {
	descriptions := make(map[string]string)
	for _, action := range actionDefinitions {
		descriptions[action.Name] = action.Description
	}
	return descriptions
}

// GetDefaultKeybindings returns a map of action names to their default keybindings
func GetDefaultKeybindings() map[string][]string {
	keybindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		keybindings[action.Name] = append([]string(nil), action.Keys...)
	}
	return keybindings
}
