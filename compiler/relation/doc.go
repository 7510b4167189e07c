// Package relation compiles associations into the fields and methods that
// realise them.
//
// Each navigable direction of an association becomes either a nullable
// pointer with set/get/remove/move/replace accessors, or an intrusive doubly
// linked list: head, tail and count on the owner, prev and next on every node,
// plus a back-pointer to the owner unless the association is global. The
// generated members carry a model.LinkSpec from which the backends render
// bodies, including both the strict and the tolerant relink paths.
//
// Classes taking part in associations also get lifecycle members:
// setupRelations relinks required pointers after construction,
// teardownRelations unlinks (or deletes owned nodes) before destruction, and
// a derived preferred constructor and destructor call them when the class has
// none of its own.
package relation
