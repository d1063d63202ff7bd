package model

import "strings"

// SubTask is one entry of an item's checklist.
type SubTask struct {
	Title     string
	IsChecked bool
}

// subTaskSep separates checklist records inside the encoded blob. Titles are
// stripped of the separator on encode, so the format stays unambiguous.
const subTaskSep = "\x1f"

// EncodeSubTasks packs a checklist into the compact blob stored on the item.
// An empty checklist encodes as nil, not as an empty string, so "no
// checklist" survives a round trip distinct from a loaded-but-empty one.
func EncodeSubTasks(tasks []SubTask) *string {
	if len(tasks) == 0 {
		return nil
	}
	records := make([]string, 0, len(tasks))
	for _, t := range tasks {
		flag := "0"
		if t.IsChecked {
			flag = "1"
		}
		title := strings.ReplaceAll(t.Title, subTaskSep, " ")
		records = append(records, flag+title)
	}
	blob := strings.Join(records, subTaskSep)
	return &blob
}

// DecodeSubTasks unpacks the blob produced by EncodeSubTasks. A nil blob
// decodes to an empty checklist.
func DecodeSubTasks(blob *string) []SubTask {
	if blob == nil || *blob == "" {
		return nil
	}
	records := strings.Split(*blob, subTaskSep)
	tasks := make([]SubTask, 0, len(records))
	for _, rec := range records {
		if rec == "" {
			continue
		}
		tasks = append(tasks, SubTask{
			Title:     rec[1:],
			IsChecked: rec[0] == '1',
		})
	}
	return tasks
}

// UncheckedSubTasks returns a copy of the blob with every box unchecked,
// used when a recurring to-do is cloned for its next cycle.
func UncheckedSubTasks(blob *string) *string {
	tasks := DecodeSubTasks(blob)
	if len(tasks) == 0 {
		return nil
	}
	for i := range tasks {
		tasks[i].IsChecked = false
	}
	return EncodeSubTasks(tasks)
}
