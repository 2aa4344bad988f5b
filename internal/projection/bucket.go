package projection

// SmallProjectTaskThreshold is the largest task count a project may have and
// still be grouped with the small projects.
const SmallProjectTaskThreshold = 2

// Buckets partitions a project tree for layout.
type Buckets struct {
	Large []ProjectWithTasks `json:"large"`
	Small []ProjectWithTasks `json:"small"`
}

// IsLarge reports whether p has more than SmallProjectTaskThreshold tasks.
func IsLarge(p ProjectWithTasks) bool {
	return len(p.Tasks) > SmallProjectTaskThreshold
}

// Bucket splits projects into large and small groups, each keeping the
// relative input order.
func Bucket(projects []ProjectWithTasks) Buckets {
	b := Buckets{Large: []ProjectWithTasks{}, Small: []ProjectWithTasks{}}
	for _, p := range projects {
		if IsLarge(p) {
			b.Large = append(b.Large, p)
		} else {
			b.Small = append(b.Small, p)
		}
	}
	return b
}
