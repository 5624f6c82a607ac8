package repository

// Author distingue quién escribió una entrada de permiso: un usuario humano
// u otro client. La identidad del actor es (Author, AuthorID); un actor
// tiene a lo sumo una entrada por lista.
type Author string

const (
	AuthorUser   Author = "USER"
	AuthorClient Author = "CLIENT"
)

// PermissionField es un campo dentro de una entrada de permiso. Name debe
// resolver en el field registry; IsPermitted=false nunca otorga acceso.
type PermissionField struct {
	Name        string `json:"name"`
	IsPermitted bool   `json:"is_permitted"`
}

// Reader autoriza lecturas por campo a un actor concreto.
type Reader struct {
	Author      Author            `json:"author"`
	AuthorID    string            `json:"author_id"`
	IsPermitted bool              `json:"is_permitted"`
	Fields      []PermissionField `json:"fields,omitempty"`
}

// Updater autoriza escrituras por campo a un actor concreto.
type Updater struct {
	Author      Author            `json:"author"`
	AuthorID    string            `json:"author_id"`
	IsPermitted bool              `json:"is_permitted"`
	Fields      []PermissionField `json:"fields,omitempty"`
}

// Deleter autoriza el borrado del usuario a un actor concreto. El borrado
// es todo-o-nada: no hay scoping por campo.
type Deleter struct {
	Author      Author `json:"author"`
	AuthorID    string `json:"author_id"`
	IsPermitted bool   `json:"is_permitted"`
}

// AllReaders es el grant blanket de lectura: usable por cualquier actor,
// independiente de identidad, igualmente acotado por campo.
type AllReaders struct {
	ArePermitted bool              `json:"are_permitted"`
	Fields       []PermissionField `json:"fields,omitempty"`
}

// AllUpdaters es el grant blanket de escritura. No existe equivalente para
// delete: borrar no es una capacidad blanket en este modelo.
type AllUpdaters struct {
	ArePermitted bool              `json:"are_permitted"`
	Fields       []PermissionField `json:"fields,omitempty"`
}

// UserPermissions agrupa las cuatro colecciones de permisos de un usuario.
// Cada una se evalúa por separado; nunca se mergean.
type UserPermissions struct {
	Readers     []Reader    `json:"readers,omitempty"`
	Updaters    []Updater   `json:"updaters,omitempty"`
	Deleters    []Deleter   `json:"deleters,omitempty"`
	AllReaders  AllReaders  `json:"all_readers"`
	AllUpdaters AllUpdaters `json:"all_updaters"`
}

// Clone devuelve una copia profunda.
func (p UserPermissions) Clone() UserPermissions {
	c := p
	c.Readers = make([]Reader, len(p.Readers))
	for i, r := range p.Readers {
		r.Fields = append([]PermissionField(nil), r.Fields...)
		c.Readers[i] = r
	}
	c.Updaters = make([]Updater, len(p.Updaters))
	for i, u := range p.Updaters {
		u.Fields = append([]PermissionField(nil), u.Fields...)
		c.Updaters[i] = u
	}
	c.Deleters = append([]Deleter(nil), p.Deleters...)
	c.AllReaders.Fields = append([]PermissionField(nil), p.AllReaders.Fields...)
	c.AllUpdaters.Fields = append([]PermissionField(nil), p.AllUpdaters.Fields...)
	return c
}

// PutReader agrega o reemplaza la entrada del actor (Author, AuthorID).
func (p *UserPermissions) PutReader(r Reader) {
	for i := range p.Readers {
		if p.Readers[i].Author == r.Author && p.Readers[i].AuthorID == r.AuthorID {
			p.Readers[i] = r
			return
		}
	}
	p.Readers = append(p.Readers, r)
}

// PutUpdater agrega o reemplaza la entrada del actor (Author, AuthorID).
func (p *UserPermissions) PutUpdater(u Updater) {
	for i := range p.Updaters {
		if p.Updaters[i].Author == u.Author && p.Updaters[i].AuthorID == u.AuthorID {
			p.Updaters[i] = u
			return
		}
	}
	p.Updaters = append(p.Updaters, u)
}

// PutDeleter agrega o reemplaza la entrada del actor (Author, AuthorID).
func (p *UserPermissions) PutDeleter(d Deleter) {
	for i := range p.Deleters {
		if p.Deleters[i].Author == d.Author && p.Deleters[i].AuthorID == d.AuthorID {
			p.Deleters[i] = d
			return
		}
	}
	p.Deleters = append(p.Deleters, d)
}

// RemoveDeleter elimina la entrada del actor si existe.
func (p *UserPermissions) RemoveDeleter(author Author, authorID string) {
	for i := range p.Deleters {
		if p.Deleters[i].Author == author && p.Deleters[i].AuthorID == authorID {
			p.Deleters = append(p.Deleters[:i], p.Deleters[i+1:]...)
			return
		}
	}
}
