package view

// ModelViewSet provides every action.
type ModelViewSet struct {
	CreateMixin
	ListMixin
	RetrieveMixin
	UpdateMixin
	DestroyMixin
}

// ReadOnlyModelViewSet provides list and retrieve.
type ReadOnlyModelViewSet struct {
	ListMixin
	RetrieveMixin
}

// CreateAPIView provides create.
type CreateAPIView struct {
	CreateMixin
}

// ListAPIView provides list.
type ListAPIView struct {
	ListMixin
}

// RetrieveAPIView provides retrieve.
type RetrieveAPIView struct {
	RetrieveMixin
}

// DestroyAPIView provides destroy.
type DestroyAPIView struct {
	DestroyMixin
}

// UpdateAPIView provides update and partial_update.
type UpdateAPIView struct {
	UpdateMixin
}

// ListCreateAPIView provides list and create.
type ListCreateAPIView struct {
	ListMixin
	CreateMixin
}

// RetrieveUpdateAPIView provides retrieve, update and partial_update.
type RetrieveUpdateAPIView struct {
	RetrieveMixin
	UpdateMixin
}

// RetrieveDestroyAPIView provides retrieve and destroy.
type RetrieveDestroyAPIView struct {
	RetrieveMixin
	DestroyMixin
}

// RetrieveUpdateDestroyAPIView provides every single-object action.
type RetrieveUpdateDestroyAPIView struct {
	RetrieveMixin
	UpdateMixin
	DestroyMixin
}

// handlerTable maps each action caps provides to its handler.
func handlerTable(caps any) map[Action]HandlerFunc {
	t := make(map[Action]HandlerFunc)
	if set, ok := caps.(actionSet); ok {
		for a, h := range set {
			t[a] = h
		}
		return t
	}
	if c, ok := caps.(Lister); ok {
		t[ActionList] = c.List
	}
	if c, ok := caps.(Creator); ok {
		t[ActionCreate] = c.Create
	}
	if c, ok := caps.(Retriever); ok {
		t[ActionRetrieve] = c.Retrieve
	}
	if c, ok := caps.(Updater); ok {
		t[ActionUpdate] = c.Update
		t[ActionPartialUpdate] = c.PartialUpdate
	}
	if c, ok := caps.(Destroyer); ok {
		t[ActionDestroy] = c.Destroy
	}
	return t
}

// actionSet is a composition chosen at runtime, e.g. from configuration.
type actionSet map[Action]HandlerFunc

// Compose returns a capability value providing exactly the named actions.
// update and partial_update travel together.
func Compose(actions ...Action) any {
	all := handlerTable(ModelViewSet{})
	set := make(actionSet, len(actions))
	for _, a := range actions {
		if h, ok := all[a]; ok {
			set[a] = h
		}
		switch a {
		case ActionUpdate:
			set[ActionPartialUpdate] = all[ActionPartialUpdate]
		case ActionPartialUpdate:
			set[ActionUpdate] = all[ActionUpdate]
		}
	}
	return set
}
