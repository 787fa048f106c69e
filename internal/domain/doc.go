// Package domain defines the core entities of the grocery platform: users with
// their shopping profile, grocery lists, and the product snapshots stored as
// list items. The types here carry validation and normalization rules only;
// persistence lives in the store packages.
package domain
