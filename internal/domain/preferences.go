package domain

// PreferenceNamespace partitions the preference store.
type PreferenceNamespace string

const (
	// NamespacePrivate holds application settings.
	NamespacePrivate PreferenceNamespace = "private"
	// NamespacePublic holds settings readable by widgets and other processes.
	NamespacePublic PreferenceNamespace = "public"
)

// Reminder flags for default_reminders.
const (
	NotifyAtDeadline    = 1 << 1
	NotifyAfterDeadline = 1 << 2
)

// Sort settings written to the public namespace.
const (
	SortFlagDragDrop = 1 << 4
	SortAuto         = 0
)

// Preference keys.
const (
	PrefDefaultUrgency       = "default_urgency"
	PrefDefaultImportance    = "default_importance"
	PrefDefaultHideUntil     = "default_hide_until"
	PrefDefaultReminders     = "default_reminders"
	PrefDefaultRandomHours   = "rmd_default_random_hours"
	PrefFontSize             = "font_size"
	PrefShowNotes            = "show_notes"
	PrefFieldMissedCalls     = "field_missed_calls"
	PrefEndAtDeadline        = "end_at_deadline"
	PrefPersistentReminders  = "rmd_persistent"
	PrefShowTodayFilter      = "show_today_filter"
	PrefShowRecentlyModified = "show_recently_modified_filter"
	PrefShowNotInListFilter  = "show_not_in_list_filter"
	PrefShowMenuSearch       = "show_menu_search"
	PrefShowMenuSync         = "show_menu_sync"
	PrefShowMenuSort         = "show_menu_sort"
	PrefCalendarReminders    = "calendar_reminders"
	PrefUseFilters           = "use_filters"
	PrefUseDarkTheme         = "use_dark_theme"
	PrefForcePhoneLayout     = "force_phone_layout"
	PrefShowQuickAddControls = "show_quickadd_controls"
	PrefShowTaskEditComments = "show_task_edit_comments"
	PrefTaskRowStyle         = "task_row_style_v2"
	PrefUseDateShortcuts     = "use_date_shortcuts"
	PrefSaveAndCancel        = "save_and_cancel"
	PrefHidePlusButton       = "hide_plus_button"
	PrefDragDropInitialized  = "drag_drop_initialized"
	PrefSubtasksHelp         = "subtasks_help"
	PrefEditControlOrder     = "edit_control_order"
	PrefSortFlags            = "sort_flags"
	PrefSortSort             = "sort_sort"
)

// DefaultEditControlOrder is the initial ordering of task edit controls.
const DefaultEditControlOrder = "title,when,importance,notes,reminders,lists,timer,repeat,comments"

// PreferenceDefault is a seeded preference value. Value is a bool, int or string.
type PreferenceDefault struct {
	Key   string
	Value any
}

// DefaultPreferences lists the private preferences seeded on first run, in write order.
func DefaultPreferences() []PreferenceDefault {
	return []PreferenceDefault{
		{PrefDefaultUrgency, 0},
		{PrefDefaultImportance, 2},
		{PrefDefaultHideUntil, 0},
		{PrefDefaultReminders, NotifyAtDeadline | NotifyAfterDeadline},
		{PrefDefaultRandomHours, 0},
		{PrefFontSize, 16},
		{PrefShowNotes, false},
		{PrefFieldMissedCalls, true},
		{PrefEndAtDeadline, true},
		{PrefPersistentReminders, true},
		{PrefShowTodayFilter, true},
		{PrefShowRecentlyModified, true},
		{PrefShowNotInListFilter, true},
		{PrefShowMenuSearch, true},
		{PrefShowMenuSync, true},
		{PrefShowMenuSort, true},
		{PrefCalendarReminders, true},
		{PrefUseFilters, false},
		{PrefUseDarkTheme, false},
		{PrefForcePhoneLayout, false},
		{PrefShowQuickAddControls, true},
		{PrefShowTaskEditComments, true},
		{PrefTaskRowStyle, "1"},
		{PrefUseDateShortcuts, false},
		{PrefSaveAndCancel, false},
		{PrefHidePlusButton, true},
	}
}

// MarketStrategy captures distribution-specific defaults.
type MarketStrategy string

const (
	MarketGeneric MarketStrategy = "generic"
	MarketPhone   MarketStrategy = "phone"
)

// DefaultPhoneLayout reports whether this strategy forces the phone layout by default.
func (m MarketStrategy) DefaultPhoneLayout() bool {
	return m == MarketPhone
}
