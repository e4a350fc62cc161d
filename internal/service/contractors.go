package service

import (
	"context"
	"strings"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
)

type ContractorInput struct {
	Name          string  `json:"name"`
	Company       string  `json:"company"`
	Specialty     string  `json:"specialty"`
	ContactPerson string  `json:"contact_person"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Status        string  `json:"status"`
	ProjectID     *uint64 `json:"project_id"`
}

type ContractorPatch struct {
	Name          *string `json:"name"`
	Company       *string `json:"company"`
	Specialty     *string `json:"specialty"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Status        *string `json:"status"`
	ProjectID     *uint64 `json:"project_id"`
	ClearProject  bool    `json:"clear_project"`
}

type ContractorFilter struct {
	Status    string
	Specialty string
	ProjectID uint64
	Search    string
}

type ContractorView struct {
	model.Contractor
	ProjectName *string `json:"project_name"`
}

func (s *Service) CreateContractor(ctx context.Context, in ContractorInput) (uint64, error) {
	c := model.Contractor{
		Company:       strings.TrimSpace(in.Company),
		Specialty:     strings.TrimSpace(in.Specialty),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		ProjectID:     in.ProjectID,
	}
	var err error
	if c.Name, err = required("name", in.Name); err != nil {
		return 0, err
	}
	if c.Status, err = enumOr("status", in.Status, model.ContractorActive, model.ParseContractorStatus, model.ContractorStatuses); err != nil {
		return 0, err
	}
	if err := s.optProjectMustExist(ctx, in.ProjectID); err != nil {
		return 0, err
	}
	c.CreationTime = s.nowMillis()
	if err := s.contractors.Create(ctx, &c); err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *Service) GetContractor(ctx context.Context, id uint64) (ContractorView, error) {
	c, err := s.contractors.GetByID(ctx, id)
	if err != nil {
		return ContractorView{}, lift(err, "contractor", id)
	}
	views, err := s.contractorViews(ctx, []model.Contractor{c})
	if err != nil {
		return ContractorView{}, err
	}
	return views[0], nil
}

func (s *Service) UpdateContractor(ctx context.Context, id uint64, p ContractorPatch) (model.Contractor, error) {
	c, err := s.contractors.GetByID(ctx, id)
	if err != nil {
		return c, lift(err, "contractor", id)
	}
	if p.Name != nil {
		if c.Name, err = required("name", *p.Name); err != nil {
			return c, err
		}
	}
	if p.Status != nil {
		if c.Status, err = enum("status", *p.Status, model.ParseContractorStatus, model.ContractorStatuses); err != nil {
			return c, err
		}
	}
	if p.ProjectID != nil {
		if err := s.optProjectMustExist(ctx, p.ProjectID); err != nil {
			return c, err
		}
		c.ProjectID = p.ProjectID
	} else if p.ClearProject {
		c.ProjectID = nil
	}
	setTrim(&c.Company, p.Company)
	setTrim(&c.Specialty, p.Specialty)
	setTrim(&c.ContactPerson, p.ContactPerson)
	setTrim(&c.Email, p.Email)
	setTrim(&c.Phone, p.Phone)
	if err := s.contractors.Update(ctx, &c); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) DeleteContractor(ctx context.Context, id uint64) error {
	return lift(s.contractors.Delete(ctx, id), "contractor", id)
}

func (s *Service) ListContractors(ctx context.Context, f ContractorFilter) ([]ContractorView, error) {
	rf := repository.ContractorFilter{Specialty: f.Specialty, ProjectID: f.ProjectID, Search: f.Search}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseContractorStatus, model.ContractorStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	rows, err := s.contractors.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.contractorViews(ctx, rows)
}

func (s *Service) contractorViews(ctx context.Context, rows []model.Contractor) ([]ContractorView, error) {
	var r refs
	for _, c := range rows {
		r.optProject(c.ProjectID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make([]ContractorView, len(rows))
	for i, c := range rows {
		out[i] = ContractorView{Contractor: c, ProjectName: n.optProject(c.ProjectID)}
	}
	return out, nil
}
