package convention

import "testing"

func TestPluralize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"author", "authors"},
		{"box", "boxes"},
		{"category", "categories"},
		{"day", "days"},
		{"person", "people"},
		{"Person", "People"},
		{"blog_post", "blog_posts"},
		{"status", "statuses"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Pluralize(tt.in); got != tt.want {
			t.Errorf("Pluralize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTableName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"author", "authors"},
		{"BlogPost", "blog_posts"},
		{"order-item", "order_items"},
	}
	for _, tt := range tests {
		if got := TableName(tt.in); got != tt.want {
			t.Errorf("TableName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollectionPath(t *testing.T) {
	if got := CollectionPath("BlogPost"); got != "/blog-posts" {
		t.Errorf("CollectionPath = %q, want /blog-posts", got)
	}
	if got := CollectionPath("author"); got != "/authors" {
		t.Errorf("CollectionPath = %q, want /authors", got)
	}
}
